package events

// Event type identifiers for kelindar/event.
const (
	TypeButtonPressed uint32 = iota + 1
	TypePatternChanged
	TypeSpeedChanged
	TypeAnimationState
	TypeLogEntry
)

// Event is what kelindar/event dispatches on.
type Event interface {
	Type() uint32
}

// ButtonPressedEvent is published for every debounced press.
type ButtonPressedEvent struct {
	Line      int    `json:"line" example:"17" doc:"GPIO line offset"`
	Action    string `json:"action" example:"next_pattern" doc:"Action bound to the button"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Wall-clock time of the press"`
}

func (e ButtonPressedEvent) Type() uint32 { return TypeButtonPressed }

// PatternChangedEvent is published when the active pattern index moves.
type PatternChangedEvent struct {
	Index     int    `json:"index" example:"1" doc:"Active pattern index"`
	Name      string `json:"name" example:"chase" doc:"Active pattern name"`
	Count     int    `json:"count" example:"5" doc:"Number of registered patterns"`
	Source    string `json:"source" example:"button" doc:"What triggered the change: button or api"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

func (e PatternChangedEvent) Type() uint32 { return TypePatternChanged }

// SpeedChangedEvent is published when the frame delay changes.
type SpeedChangedEvent struct {
	DelayMs   int64  `json:"delay_ms" example:"200" doc:"Frame delay in milliseconds"`
	Source    string `json:"source" example:"button" doc:"What triggered the change: button or api"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

func (e SpeedChangedEvent) Type() uint32 { return TypeSpeedChanged }

// AnimationStateEvent is published when the animation engine starts or stops.
type AnimationStateEvent struct {
	Running   bool   `json:"running" doc:"Whether the animation loop is running"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

func (e AnimationStateEvent) Type() uint32 { return TypeAnimationState }

// LogEntryEvent carries one log record to /api/logs subscribers.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number"`
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"input" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
