// Package model defines the data types shared by the action interpreter,
// the step runner, and the session orchestrator: test cases, actions,
// element descriptors, and the result types produced while running them.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ActionType identifies the kind of browser operation an Action performs.
type ActionType string

const (
	ActionSystemNavigate ActionType = "System_Navigate"
	ActionNavigate       ActionType = "navigate"
	ActionMouseDown      ActionType = "mousedown"
	ActionChange         ActionType = "change"
	ActionHover          ActionType = "hover"
	ActionScroll         ActionType = "scroll"
	ActionFileSelect     ActionType = "fileSelect"
	ActionDragStart      ActionType = "dragstart"
	ActionDragEnd        ActionType = "dragend"

	KeyEnter      ActionType = "Enter"
	KeyTab        ActionType = "Tab"
	KeyArrowUp    ActionType = "ArrowUp"
	KeyArrowDown  ActionType = "ArrowDown"
	KeyArrowLeft  ActionType = "ArrowLeft"
	KeyArrowRight ActionType = "ArrowRight"
	KeyEscape     ActionType = "Escape"
)

// IsKeyPress reports whether the action type names a keyboard key rather
// than a structural action.
func (t ActionType) IsKeyPress() bool {
	switch t {
	case KeyEnter, KeyTab, KeyArrowUp, KeyArrowDown, KeyArrowLeft, KeyArrowRight, KeyEscape:
		return true
	default:
		return false
	}
}

// IframeIdentifier locates a child frame by the origin+path of its src.
type IframeIdentifier struct {
	Src string `json:"src"`
}

// StorageData describes a file to upload for a fileSelect action. Content
// is a data URL; the payload is the substring after the first comma,
// base64-encoded.
type StorageData struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

// AssertionSpec is one assertion to run after an action completes.
type AssertionSpec struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// assertionPrecedence fixes the iteration order used when assertions are
// decoded from the legacy map-keyed wire format, since encoding/json does
// not preserve JSON object key order.
var assertionPrecedence = []string{
	"ValidEmail",
	"formHasValue",
	"pageHasTitle",
	"pageHasText",
	"elementHasText",
	"elementIsVisible",
	"downloadStarted",
}

// AssertionSet is the ordered list of assertions attached to an action. It
// decodes from either a JSON array (authoritative order) or a JSON object
// keyed by assertion kind (order imposed by assertionPrecedence, with any
// kind not in that list appended in map-iteration order).
type AssertionSet []AssertionSpec

// UnmarshalJSON implements json.Unmarshaler.
func (set *AssertionSet) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		*set = nil
		return nil
	}
	if trimmed[0] == '[' {
		var list []AssertionSpec
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return fmt.Errorf("decode assertion list: %w", err)
		}
		*set = list
		return nil
	}

	var byKind map[string]struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(trimmed, &byKind); err != nil {
		return fmt.Errorf("decode assertion map: %w", err)
	}

	seen := make(map[string]bool, len(byKind))
	ordered := make(AssertionSet, 0, len(byKind))
	for _, kind := range assertionPrecedence {
		if entry, ok := byKind[kind]; ok {
			ordered = append(ordered, AssertionSpec{Type: kind, Value: entry.Value})
			seen[kind] = true
		}
	}
	for kind, entry := range byKind {
		if !seen[kind] {
			ordered = append(ordered, AssertionSpec{Type: kind, Value: entry.Value})
		}
	}
	*set = ordered
	return nil
}

// XPathList decodes from either a single JSON string or a JSON array of
// strings into an ordered list of candidate xpaths.
type XPathList []string

// UnmarshalJSON implements json.Unmarshaler.
func (list *XPathList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		*list = nil
		return nil
	}
	if trimmed[0] == '[' {
		var many []string
		if err := json.Unmarshal(trimmed, &many); err != nil {
			return fmt.Errorf("decode xpath list: %w", err)
		}
		*list = many
		return nil
	}
	var single string
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return fmt.Errorf("decode xpath string: %w", err)
	}
	if single == "" {
		*list = nil
		return nil
	}
	*list = []string{single}
	return nil
}

// ElementDescriptor bundles the selectors and authoring-time snapshot
// values used to find and evaluate one element across runs.
type ElementDescriptor struct {
	UniqueSelector string    `json:"uniqueSelector,omitempty"`
	XPath          XPathList `json:"xpath,omitempty"`
	IsAlert        bool      `json:"isAlert,omitempty"`
	Value          string    `json:"value,omitempty"`
	TextContent    string    `json:"textContent,omitempty"`
}

// Action is one declarative step in a TestCase.
type Action struct {
	Type             ActionType         `json:"type"`
	Sequence         int                `json:"sequence,omitempty"`
	Description      string             `json:"description,omitempty"`
	Element          *ElementDescriptor `json:"element,omitempty"`
	IsTopFrame       *bool              `json:"isTopFrame,omitempty"`
	IframeIdentifier *IframeIdentifier  `json:"iframeIdentifier,omitempty"`
	URL              string             `json:"url,omitempty"`
	Value            string             `json:"value,omitempty"`
	Variable         *VariableSpec      `json:"variable,omitempty"`
	ScrollX          float64            `json:"scrollX,omitempty"`
	ScrollY          float64            `json:"scrollY,omitempty"`
	ContainerXPath   string             `json:"containerXPath,omitempty"`
	StorageData      *StorageData       `json:"storageData,omitempty"`
	DropTarget       *ElementDescriptor `json:"dropTarget,omitempty"`
	Wait             *float64           `json:"wait,omitempty"`
	Assertions       AssertionSet       `json:"assertions,omitempty"`
}

// VariableSpec names a built-in or stored variable to resolve at fill time.
type VariableSpec struct {
	Name   string `json:"name"`
	Length int    `json:"length,omitempty"`
	Value  string `json:"value,omitempty"`
}

const defaultPostStepWaitSeconds = 1

// WaitSeconds returns the post-step delay, defaulting to 1 second.
func (a Action) WaitSeconds() float64 {
	if a.Wait == nil {
		return defaultPostStepWaitSeconds
	}
	return *a.Wait
}

// ResolvedIsTopFrame returns the effective isTopFrame value, default true.
func (a Action) ResolvedIsTopFrame() bool {
	if a.IsTopFrame == nil {
		return true
	}
	return *a.IsTopFrame
}

// SequenceOrIndex returns the action's declared sequence, falling back to
// the 1-based list index.
func (a Action) SequenceOrIndex(index int) int {
	if a.Sequence != 0 {
		return a.Sequence
	}
	return index + 1
}

// DescriptionOrType returns the action's description, falling back to its type.
func (a Action) DescriptionOrType() string {
	if a.Description != "" {
		return a.Description
	}
	return string(a.Type)
}

// TestCase is a read-only, ordered sequence of actions starting at a URL.
type TestCase struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	URL     string   `json:"url,omitempty"`
	Actions []Action `json:"actions"`
}
