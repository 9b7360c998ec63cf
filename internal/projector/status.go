package projector

import "github.com/tailfin-ai/tailfin/internal/core/domain"

// allowedStatuses lists the status values each tool type may surface when a
// free-form upstream status string is coerced. Values assigned directly by
// run-item rules (awaiting_approval) bypass coercion but remain in the sets
// so later snapshots do not regress them.
var allowedStatuses = map[domain.ToolType]map[domain.ToolStatus]struct{}{
	domain.ToolWebSearch: {
		domain.ToolStatusInProgress: {},
		domain.ToolStatusSearching:  {},
		domain.ToolStatusCompleted:  {},
	},
	domain.ToolFileSearch: {
		domain.ToolStatusInProgress: {},
		domain.ToolStatusSearching:  {},
		domain.ToolStatusCompleted:  {},
	},
	domain.ToolCodeInterpreter: {
		domain.ToolStatusInProgress:   {},
		domain.ToolStatusInterpreting: {},
		domain.ToolStatusCompleted:    {},
	},
	domain.ToolImageGeneration: {
		domain.ToolStatusInProgress:   {},
		domain.ToolStatusGenerating:   {},
		domain.ToolStatusPartialImage: {},
		domain.ToolStatusCompleted:    {},
	},
	domain.ToolFunction: {
		domain.ToolStatusInProgress:       {},
		domain.ToolStatusCompleted:        {},
		domain.ToolStatusFailed:           {},
		domain.ToolStatusAwaitingApproval: {},
	},
	domain.ToolMCP: {
		domain.ToolStatusInProgress:       {},
		domain.ToolStatusCompleted:        {},
		domain.ToolStatusFailed:           {},
		domain.ToolStatusAwaitingApproval: {},
	},
}

// coerceStatus maps a free-form upstream status into the tool type's allowed
// set, falling back to in_progress for unknown values.
func coerceStatus(t domain.ToolType, raw string) domain.ToolStatus {
	s := domain.ToolStatus(raw)
	if set, ok := allowedStatuses[t]; ok {
		if _, ok := set[s]; ok {
			return s
		}
	}
	return domain.ToolStatusInProgress
}

// coerceStatusAtDone is the item-completion variant: an unknown web_search
// status falls back to completed because the item has finished, all other
// tool types keep the in_progress fallback.
func coerceStatusAtDone(t domain.ToolType, raw string) domain.ToolStatus {
	if t == domain.ToolWebSearch {
		s := domain.ToolStatus(raw)
		if _, ok := allowedStatuses[t][s]; ok {
			return s
		}
		return domain.ToolStatusCompleted
	}
	return coerceStatus(t, raw)
}
