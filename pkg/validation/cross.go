package validation

// CrossValidator checks a relationship between several inputs. Each entry of
// inputs holds every value collected for one declared input id, in the order
// the rule declares them.
type CrossValidator func(inputs [][]string) Result

func first(inputs [][]string, idx int) string {
	if idx >= len(inputs) || len(inputs[idx]) == 0 {
		return ""
	}
	return inputs[idx][0]
}

func all(inputs [][]string, idx int) []string {
	if idx >= len(inputs) {
		return nil
	}
	return inputs[idx]
}

// ContractDurationRule expects inputs [start, end].
func ContractDurationRule(inputs [][]string) Result {
	return ContractDuration(first(inputs, 0), first(inputs, 1))
}

// PersonnelRoleRule expects inputs [roles].
func PersonnelRoleRule(inputs [][]string) Result {
	return RoleSelected(all(inputs, 0))
}

// GenderRule expects inputs [gender].
func GenderRule(inputs [][]string) Result {
	return GenderSelected(first(inputs, 0))
}

// SkillDuplicationRule expects inputs [skills].
func SkillDuplicationRule(inputs [][]string) Result {
	return SkillDuplication(all(inputs, 0))
}

// SelectionRule adapts NotEmptySelection to a single multi-valued input.
func SelectionRule(inputs [][]string) Result {
	return NotEmptySelection(all(inputs, 0))
}
