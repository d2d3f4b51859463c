package discord

import (
	"fmt"
	"strings"
)

const ComponentIDPrefix = "o:"

type ComponentIDSource string
type ComponentIDAction string

// ComponentID names a button, modal or text input as "o:<source>:<action>".
type ComponentID struct {
	// Source is where the component lives, ie: "page"
	Source ComponentIDSource

	// Action is what the component does, ie: "transcribe"
	Action ComponentIDAction
}

var (
	ErrComponentIDInvalidPrefix = fmt.Errorf("invalid component id prefix")
	ErrComponentIDInvalidParts  = fmt.Errorf("incorrect number of parts in component id")
)

func ParseComponentID(id string) (*ComponentID, error) {
	id, found := strings.CutPrefix(id, ComponentIDPrefix)
	if !found {
		return nil, ErrComponentIDInvalidPrefix
	}

	source, action, found := strings.Cut(id, ":")
	if !found || source == "" || action == "" || strings.Contains(action, ":") {
		return nil, ErrComponentIDInvalidParts
	}

	return &ComponentID{
		Source: ComponentIDSource(source),
		Action: ComponentIDAction(action),
	}, nil
}

func (c *ComponentID) String() string {
	return ComponentIDPrefix + string(c.Source) + ":" + string(c.Action)
}

func (c *ComponentID) Is(source ComponentIDSource, action ComponentIDAction) bool {
	return c.Source == source && c.Action == action
}

func ComponentIDString(source ComponentIDSource, action ComponentIDAction) string {
	componentID := &ComponentID{
		Source: source,
		Action: action,
	}
	return componentID.String()
}
