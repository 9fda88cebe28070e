package dedupe

import (
	"github.com/jlienhard/schoolhouse/internal/entities"
)

// Resolution is the caller-selected action for one detected duplicate.
type Resolution struct {
	ImportIndex    int    `json:"import_index"`
	ExistingCardID uint   `json:"existing_card_id"`
	Action         Action `json:"action"`
}

// MergePlan is what applying the chosen resolutions would look like.
// Persistence stays with the caller: Create holds cards to insert as
// new rows, Update holds cards carrying the ID of the existing row they
// replace the content of, Skipped counts import cards dropped.
type MergePlan struct {
	Create  []entities.Flashcard `json:"create"`
	Update  []entities.Flashcard `json:"update"`
	Skipped int                  `json:"skipped"`
}

// PlanMerge computes the adjusted card list for a batch given the
// per-duplicate resolutions. Import cards without a resolution are
// created as-is. Both "update" and "replace" rewrite the existing row
// with the imported content; "keep_both" creates the import alongside
// the existing card; "skip" drops it.
func PlanMerge(importCards []entities.Flashcard, resolutions []Resolution) MergePlan {
	resolved := make(map[int]Resolution, len(resolutions))
	for _, r := range resolutions {
		resolved[r.ImportIndex] = r
	}

	plan := MergePlan{}
	for i := range importCards {
		r, isDuplicate := resolved[i]
		if !isDuplicate {
			plan.Create = append(plan.Create, importCards[i])
			continue
		}

		switch r.Action {
		case ActionSkip:
			plan.Skipped++
		case ActionUpdate, ActionReplace:
			card := importCards[i]
			card.ID = r.ExistingCardID
			plan.Update = append(plan.Update, card)
		case ActionKeepBoth:
			plan.Create = append(plan.Create, importCards[i])
		default:
			// Unknown actions err on the side of not losing data.
			plan.Create = append(plan.Create, importCards[i])
		}
	}
	return plan
}
