package funnel

import (
	"sort"
	"strings"

	"github.com/ajharbinger/lead-funnel/internal/models"
)

// UnassignedOwner collects leads whose owner is blank
const UnassignedOwner = "Unassigned"

// Summarize aggregates scored leads into per-owner totals. Leads removed by
// the exclude terminal policy are counted but contribute nothing. A lead is
// stale when its known age exceeds staleAfterDays (0 disables the count).
// Overflow is advisory and set when the total exceeds ceiling (0 disables it).
//
// Contributions are summed in sorted order so the result does not depend on
// the order of scored.
func Summarize(scored []models.ScoredLead, ceiling float64, staleAfterDays int) models.FunnelSummary {
	summary := models.FunnelSummary{Ceiling: ceiling}

	values := make(map[string][]float64)
	for _, lead := range scored {
		if lead.Excluded() {
			summary.ExcludedTerminal++
			continue
		}

		summary.LeadCount++
		if staleAfterDays > 0 && lead.DaysSinceCreation != nil && *lead.DaysSinceCreation > staleAfterDays {
			summary.StaleCount++
		}

		owner := OwnerKey(lead.Owner)
		values[owner] = append(values[owner], lead.ExpectedValue)
	}

	all := make([]float64, 0, summary.LeadCount)
	for owner, v := range values {
		summary.Owners = append(summary.Owners, models.OwnerTotal{
			Owner: owner,
			Total: stableSum(v),
			Leads: len(v),
		})
		all = append(all, v...)
	}
	summary.Total = stableSum(all)

	sortOwners(summary.Owners)
	summary.Overflow = overflow(summary.Total, ceiling)
	return summary
}

// Merge combines two partial summaries, e.g. from separately scored batches.
// The ceiling of a wins unless it is unset.
func Merge(a, b models.FunnelSummary) models.FunnelSummary {
	out := models.FunnelSummary{
		LeadCount:        a.LeadCount + b.LeadCount,
		StaleCount:       a.StaleCount + b.StaleCount,
		ExcludedTerminal: a.ExcludedTerminal + b.ExcludedTerminal,
		Ceiling:          a.Ceiling,
	}
	if out.Ceiling == 0 {
		out.Ceiling = b.Ceiling
	}

	byOwner := make(map[string]models.OwnerTotal)
	for _, part := range [][]models.OwnerTotal{a.Owners, b.Owners} {
		for _, ot := range part {
			cur := byOwner[ot.Owner]
			cur.Owner = ot.Owner
			cur.Total += ot.Total
			cur.Leads += ot.Leads
			byOwner[ot.Owner] = cur
		}
	}

	totals := make([]float64, 0, len(byOwner))
	for _, ot := range byOwner {
		out.Owners = append(out.Owners, ot)
		totals = append(totals, ot.Total)
	}
	out.Total = stableSum(totals)

	sortOwners(out.Owners)
	out.Overflow = overflow(out.Total, out.Ceiling)
	return out
}

// OwnerKey trims an owner name and maps blanks to UnassignedOwner
func OwnerKey(owner string) string {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return UnassignedOwner
	}
	return owner
}

// sortOwners orders by total descending, then owner name
func sortOwners(owners []models.OwnerTotal) {
	sort.Slice(owners, func(i, j int) bool {
		if owners[i].Total != owners[j].Total {
			return owners[i].Total > owners[j].Total
		}
		return owners[i].Owner < owners[j].Owner
	})
}

func stableSum(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	total := 0.0
	for _, v := range sorted {
		total += v
	}
	return total
}

func overflow(total, ceiling float64) bool {
	return ceiling > 0 && total > ceiling
}
