package automation

// BuildActionMap maps an automation's flat action list into a lookup
// table keyed by action id.
//
// Pure, no failure modes. Duplicate ids are last-write-wins: the later
// action in the list replaces the earlier one. ValidateAutomation reports
// duplicates so authoring surfaces can reject them before they get here.
func BuildActionMap(actions []Action) map[string]Action {
	m := make(map[string]Action, len(actions))
	for _, action := range actions {
		m[action.ID] = action
	}
	return m
}
