package models

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"1.2.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"a1b2c3d" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-27T10:30:00Z" doc:"Build timestamp"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go toolchain version"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"OS and architecture"`
}

type VersionResponse struct {
	Body VersionData
}

// Status models
type ButtonData struct {
	Line   int    `json:"line" example:"17" doc:"GPIO line offset"`
	Action string `json:"action" example:"next_pattern" doc:"Action bound to the button"`
}

type StatusData struct {
	Running      bool         `json:"running" doc:"Whether the animation loop is running"`
	Pattern      string       `json:"pattern" example:"chase" doc:"Active pattern name"`
	PatternIndex int          `json:"pattern_index" example:"1" doc:"Active pattern index"`
	PatternCount int          `json:"pattern_count" example:"5" doc:"Number of registered patterns"`
	DelayMs      int64        `json:"delay_ms" example:"250" doc:"Current frame delay in milliseconds"`
	MinDelayMs   int64        `json:"min_delay_ms" example:"50" doc:"Lower delay bound"`
	MaxDelayMs   int64        `json:"max_delay_ms" example:"1000" doc:"Upper delay bound"`
	StepMs       int64        `json:"step_ms" example:"50" doc:"Delay change per speed action"`
	Chip         string       `json:"chip" example:"/dev/gpiochip0" doc:"GPIO chip in use"`
	LEDLines     []int        `json:"led_lines" doc:"LED line offsets, in frame order"`
	Buttons      []ButtonData `json:"buttons" doc:"Button bindings"`
}

type StatusResponse struct {
	Body StatusData
}

// Pattern models
type PatternData struct {
	Index  int      `json:"index" example:"0" doc:"Position in the rotation"`
	Name   string   `json:"name" example:"chase" doc:"Pattern name"`
	Frames []string `json:"frames" example:"[\"1000\",\"0100\"]" doc:"Frames as 0/1 strings, one character per LED"`
	Active bool     `json:"active" doc:"Whether this is the active pattern"`
}

type PatternListData struct {
	Patterns []PatternData `json:"patterns" doc:"Registered patterns"`
	Count    int           `json:"count" example:"5" doc:"Number of patterns"`
	Active   int           `json:"active" example:"0" doc:"Active pattern index"`
}

type PatternListResponse struct {
	Body PatternListData
}

type SelectPatternRequest struct {
	Body struct {
		Index int `json:"index" minimum:"0" example:"2" doc:"Pattern index to activate"`
	}
}

// Control models
type ActionRequest struct {
	Action string `path:"action" enum:"previous_pattern,next_pattern,decrease_speed,increase_speed" doc:"Action to perform"`
}

type SpeedRequest struct {
	Body struct {
		DelayMs int `json:"delay_ms" minimum:"1" example:"200" doc:"Frame delay in milliseconds; clamped to the configured bounds"`
	}
}

type ControlData struct {
	PatternIndex int    `json:"pattern_index" example:"1" doc:"Active pattern index after the change"`
	Pattern      string `json:"pattern" example:"chase" doc:"Active pattern name after the change"`
	DelayMs      int64  `json:"delay_ms" example:"200" doc:"Frame delay after the change"`
}

type ControlResponse struct {
	Body ControlData
}

// Log models
type LogsRequest struct {
	Limit int `query:"limit" default:"100" minimum:"1" maximum:"1000" doc:"Number of most recent entries to return"`
}

type LogEntryData struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number"`
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"input" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

type LogsData struct {
	Entries []LogEntryData `json:"entries" doc:"Log entries, oldest first"`
	Count   int            `json:"count" example:"100" doc:"Number of entries returned"`
}

type LogsResponse struct {
	Body LogsData
}
