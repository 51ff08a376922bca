package actions

import (
	"reflect"
	"sort"
)

// actionRegistry maps YAML action names to their concrete Go types.
// Names are matched lowercase, with or without underscores.
//
// To add a new action:
// 1. Create a struct that implements the ActionStep interface (Validate & Build methods)
// 2. Add it to this registry with the name that will be used in YAML files
var actionRegistry = map[string]reflect.Type{
	"find_image":      reflect.TypeOf(FindImage{}),
	"tap_image":       reflect.TypeOf(TapImage{}),
	"tap_while_found": reflect.TypeOf(TapWhileFound{}),
	"drag_image":      reflect.TypeOf(DragImage{}),
	"input_text":      reflect.TypeOf(InputText{}),
	"sleep":           reflect.TypeOf(Sleep{}),
	"launch_app":      reflect.TypeOf(LaunchApp{}),
	"push_media":      reflect.TypeOf(PushMedia{}),
	"remove_file":     reflect.TypeOf(RemoveFile{}),
	"set_variable":    reflect.TypeOf(SetVariable{}),
	"if_variable":     reflect.TypeOf(IfVariable{}),
}

// getRegisteredActions returns a sorted list of action names for error messages
func getRegisteredActions() []string {
	actions := make([]string, 0, len(actionRegistry))
	for name := range actionRegistry {
		actions = append(actions, name)
	}
	sort.Strings(actions)
	return actions
}
