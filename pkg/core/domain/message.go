package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownAction  = errors.New("unknown action")
	ErrInvalidPayload = errors.New("invalid message payload")
)

// Action names the requests the coordinator accepts.
type Action string

const (
	ActionToggleSidebar      Action = "toggle-sidebar"
	ActionGetCurrentTab      Action = "get-current-tab"
	ActionGetAllTabs         Action = "get-all-tabs"
	ActionCaptureThumbnail   Action = "capture-thumbnail"
	ActionOpenTab            Action = "open-tab"
	ActionOpenAllPages       Action = "open-all-pages"
	ActionCheckPremiumStatus Action = "checkPremiumStatus"
	ActionInitiatePurchase   Action = "initiatePurchase"
)

// OpenMode selects where open-all-pages puts the URLs.
type OpenMode string

const (
	OpenCurrent   OpenMode = "current"
	OpenNewWindow OpenMode = "new-window"
	OpenIncognito OpenMode = "incognito"
)

// ParseOpenMode accepts the three modes plus the legacy "same" spelling and
// an empty value, both meaning the current window.
func ParseOpenMode(s string) (OpenMode, error) {
	switch OpenMode(strings.TrimSpace(s)) {
	case "", "same", OpenCurrent:
		return OpenCurrent, nil
	case OpenNewWindow:
		return OpenNewWindow, nil
	case OpenIncognito:
		return OpenIncognito, nil
	}
	return "", fmt.Errorf("%w: unknown open mode %q", ErrInvalidPayload, s)
}

// Request is implemented by every message the coordinator handles. The set
// is closed: only types in this package satisfy it.
type Request interface {
	Action() Action
	isRequest()
}

type ToggleSidebar struct{}

type GetCurrentTab struct{}

type GetAllTabs struct{}

type CaptureThumbnail struct{}

type OpenTab struct {
	URL string `json:"url"`
}

type OpenAllPages struct {
	URLs []string `json:"urls"`
	Mode OpenMode `json:"mode"`
}

type CheckPremiumStatus struct{}

type InitiatePurchase struct {
	SKU string `json:"sku,omitempty"`
}

func (ToggleSidebar) Action() Action      { return ActionToggleSidebar }
func (GetCurrentTab) Action() Action      { return ActionGetCurrentTab }
func (GetAllTabs) Action() Action         { return ActionGetAllTabs }
func (CaptureThumbnail) Action() Action   { return ActionCaptureThumbnail }
func (OpenTab) Action() Action            { return ActionOpenTab }
func (OpenAllPages) Action() Action       { return ActionOpenAllPages }
func (CheckPremiumStatus) Action() Action { return ActionCheckPremiumStatus }
func (InitiatePurchase) Action() Action   { return ActionInitiatePurchase }

func (ToggleSidebar) isRequest()      {}
func (GetCurrentTab) isRequest()      {}
func (GetAllTabs) isRequest()         {}
func (CaptureThumbnail) isRequest()   {}
func (OpenTab) isRequest()            {}
func (OpenAllPages) isRequest()       {}
func (CheckPremiumStatus) isRequest() {}
func (InitiatePurchase) isRequest()   {}

// DecodeRequest reads a message of the form {"action": ..., payload...}.
func DecodeRequest(data []byte) (Request, error) {
	var envelope struct {
		Action Action   `json:"action"`
		URL    string   `json:"url"`
		URLs   []string `json:"urls"`
		Mode   string   `json:"mode"`
		SKU    string   `json:"sku"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	switch envelope.Action {
	case ActionToggleSidebar, "toggle":
		return ToggleSidebar{}, nil
	case ActionGetCurrentTab:
		return GetCurrentTab{}, nil
	case ActionGetAllTabs:
		return GetAllTabs{}, nil
	case ActionCaptureThumbnail:
		return CaptureThumbnail{}, nil
	case ActionOpenTab:
		u, err := ValidateWebURL(envelope.URL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return OpenTab{URL: u}, nil
	case ActionOpenAllPages:
		if len(envelope.URLs) == 0 {
			return nil, fmt.Errorf("%w: urls is required", ErrInvalidPayload)
		}
		mode, err := ParseOpenMode(envelope.Mode)
		if err != nil {
			return nil, err
		}
		urls := make([]string, len(envelope.URLs))
		for i, raw := range envelope.URLs {
			if urls[i], err = ValidateWebURL(raw); err != nil {
				return nil, fmt.Errorf("%w: urls[%d]: %v", ErrInvalidPayload, i, err)
			}
		}
		return OpenAllPages{URLs: urls, Mode: mode}, nil
	case ActionCheckPremiumStatus:
		return CheckPremiumStatus{}, nil
	case ActionInitiatePurchase:
		return InitiatePurchase{SKU: envelope.SKU}, nil
	case "":
		return nil, fmt.Errorf("%w: action is required", ErrInvalidPayload)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownAction, envelope.Action)
}

// Response is the uniform reply shape for every request.
type Response struct {
	RequestID string `json:"requestId,omitempty"`
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
}

func OK(data any) Response {
	return Response{Success: true, Data: data}
}

func Fail(err error) Response {
	return Response{Success: false, Error: err.Error()}
}

// Tab is the subset of browser tab state the UI needs.
type Tab struct {
	ID         string `json:"-"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	FavIconURL string `json:"favIconUrl,omitempty"`
}

// Result payloads.
type (
	CurrentTabResult struct {
		Tab *Tab `json:"tab"`
	}
	AllTabsResult struct {
		Tabs []Tab `json:"tabs"`
	}
	ThumbnailResult struct {
		Thumbnail *string `json:"thumbnail"`
	}
	PremiumResult struct {
		Premium bool `json:"premium"`
	}
)

// WindowRef identifies a window created by the coordinator so that further
// tabs can be added to it.
type WindowRef struct {
	ID               string
	BrowserContextID string
	Incognito        bool
}
