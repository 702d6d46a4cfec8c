package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/blinkd/internal/api/models"
	"github.com/smazurov/blinkd/internal/control"
)

func (s *Server) registerControlRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/api/status",
		Summary:     "Status",
		Description: "Animation state, active pattern, speed and pin map",
		Tags:        []string{"control"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.StatusResponse, error) {
		return &models.StatusResponse{Body: s.status()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-patterns",
		Method:      http.MethodGet,
		Path:        "/api/patterns",
		Summary:     "List Patterns",
		Description: "List registered patterns in rotation order",
		Tags:        []string{"patterns"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.PatternListResponse, error) {
		return &models.PatternListResponse{Body: s.patternList()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "select-pattern",
		Method:      http.MethodPut,
		Path:        "/api/patterns/active",
		Summary:     "Select Pattern",
		Description: "Make a pattern active. The switch takes effect when the current pattern finishes its traversal.",
		Tags:        []string{"patterns"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 422},
	}, func(_ context.Context, input *models.SelectPatternRequest) (*models.ControlResponse, error) {
		ctrl := s.options.Controller
		if count := ctrl.Store().Len(); input.Body.Index >= count {
			return nil, huma.Error422UnprocessableEntity("pattern index out of range",
				&huma.ErrorDetail{Location: "body.index", Value: input.Body.Index})
		}
		ctrl.Select(input.Body.Index, control.SourceAPI)
		return s.controlResponse(), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "perform-action",
		Method:      http.MethodPost,
		Path:        "/api/actions/{action}",
		Summary:     "Perform Action",
		Description: "Perform the same action a button press would",
		Tags:        []string{"control"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 422},
	}, func(_ context.Context, input *models.ActionRequest) (*models.ControlResponse, error) {
		action, err := control.ParseAction(input.Action)
		if err != nil {
			return nil, huma.Error400BadRequest("unknown action", err)
		}
		if err := s.options.Controller.Do(action, control.SourceAPI); err != nil {
			if errors.Is(err, control.ErrUnknownAction) {
				return nil, huma.Error400BadRequest("unknown action", err)
			}
			return nil, huma.Error500InternalServerError("action failed", err)
		}
		return s.controlResponse(), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-speed",
		Method:      http.MethodPut,
		Path:        "/api/speed",
		Summary:     "Set Speed",
		Description: "Set the frame delay. Values outside the configured bounds are clamped.",
		Tags:        []string{"control"},
		Security:    withAuth(),
		Errors:      []int{401, 422},
	}, func(_ context.Context, input *models.SpeedRequest) (*models.ControlResponse, error) {
		s.options.Controller.SetDelay(time.Duration(input.Body.DelayMs)*time.Millisecond, control.SourceAPI)
		return s.controlResponse(), nil
	})
}

func (s *Server) status() models.StatusData {
	ctrl := s.options.Controller
	store := ctrl.Store()
	snap := store.Snapshot()
	minDelay, maxDelay := store.Bounds()

	running := false
	if s.options.Animation != nil {
		running = s.options.Animation.Running()
	}

	buttons := s.options.Buttons
	if buttons == nil {
		buttons = []models.ButtonData{}
	}
	leds := s.options.LEDLines
	if leds == nil {
		leds = []int{}
	}

	return models.StatusData{
		Running:      running,
		Pattern:      snap.Pattern.Name,
		PatternIndex: snap.Index,
		PatternCount: snap.Count,
		DelayMs:      snap.Delay.Milliseconds(),
		MinDelayMs:   minDelay.Milliseconds(),
		MaxDelayMs:   maxDelay.Milliseconds(),
		StepMs:       ctrl.Step().Milliseconds(),
		Chip:         s.options.Chip,
		LEDLines:     leds,
		Buttons:      buttons,
	}
}

func (s *Server) patternList() models.PatternListData {
	store := s.options.Controller.Store()
	active := store.Index()
	list := store.Patterns()

	data := models.PatternListData{
		Patterns: make([]models.PatternData, 0, len(list)),
		Count:    len(list),
		Active:   active,
	}
	for i, p := range list {
		data.Patterns = append(data.Patterns, models.PatternData{
			Index:  i,
			Name:   p.Name,
			Frames: p.FrameStrings(),
			Active: i == active,
		})
	}
	return data
}

func (s *Server) controlResponse() *models.ControlResponse {
	snap := s.options.Controller.Store().Snapshot()
	return &models.ControlResponse{
		Body: models.ControlData{
			PatternIndex: snap.Index,
			Pattern:      snap.Pattern.Name,
			DelayMs:      snap.Delay.Milliseconds(),
		},
	}
}
