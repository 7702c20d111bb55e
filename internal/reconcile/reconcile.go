// Package reconcile collapses duplicate submissions of one transaction into a
// single surviving record.
package reconcile

import (
	"fmt"
	"sort"

	"github.com/dvloznov/txclean/internal/domain"
	"github.com/dvloznov/txclean/internal/normalize"
)

// Reasons recorded in the audit trail.
const (
	ReasonEmailCompleteness = "survivor has a more complete email"
	ReasonEarlierOrderDate  = "survivor has an earlier order date"
	ReasonInputOrder        = "survivor appears earlier in the batch"
)

// Result is the outcome of Reconcile.
type Result struct {
	Kept       domain.CanonicalDataset
	Duplicates []domain.NormalizedRecord
	Audit      domain.AuditTrail
	Groups     int
}

// EmailCompletenessRank is 0 for an address taken verbatim from the input in
// valid shape and 1 for anything inferred, repaired or missing.
func EmailCompletenessRank(r *domain.NormalizedRecord) int {
	if r.EmailWasInferred || r.EmailWasRepaired || r.IsUnparsed(domain.FieldCustomerEmail) {
		return 1
	}
	if !normalize.IsValidEmailShape(r.CustomerEmail) {
		return 1
	}
	return 0
}

// Less orders two candidates of the same transaction: complete email first,
// then earliest order date (unparsed dates last), then batch position.
func Less(a, b *domain.NormalizedRecord) bool {
	ra, rb := EmailCompletenessRank(a), EmailCompletenessRank(b)
	if ra != rb {
		return ra < rb
	}
	if c := compareDates(a, b); c != 0 {
		return c < 0
	}
	return a.RowNumber < b.RowNumber
}

func compareDates(a, b *domain.NormalizedRecord) int {
	ha, hb := a.HasOrderDate(), b.HasOrderDate()
	switch {
	case ha && !hb:
		return -1
	case !ha && hb:
		return 1
	case !ha && !hb:
		return 0
	case a.OrderDate.Before(b.OrderDate):
		return -1
	case b.OrderDate.Before(a.OrderDate):
		return 1
	}
	return 0
}

// Partition groups candidates by transaction id. Groups are returned in order
// of the first appearance of each id, and members keep their input order.
func Partition(records []domain.NormalizedRecord) []domain.DuplicateGroup {
	index := make(map[string]int)
	var groups []domain.DuplicateGroup
	for _, r := range records {
		i, ok := index[r.TransactionID]
		if !ok {
			i = len(groups)
			index[r.TransactionID] = i
			groups = append(groups, domain.DuplicateGroup{TransactionID: r.TransactionID})
		}
		groups[i].Members = append(groups[i].Members, r)
	}
	return groups
}

// Reconcile selects exactly one survivor per transaction id. The choice only
// depends on record contents and batch positions, so re-running on the same
// input always keeps the same records.
func Reconcile(records []domain.NormalizedRecord) Result {
	groups := Partition(records)
	res := Result{
		Kept:   make(domain.CanonicalDataset, 0, len(groups)),
		Groups: len(groups),
	}

	for _, g := range groups {
		survivor, dups, entries := resolveGroup(g)
		res.Kept = append(res.Kept, survivor)
		res.Duplicates = append(res.Duplicates, dups...)
		res.Audit = append(res.Audit, entries...)
	}
	return res
}

func resolveGroup(g domain.DuplicateGroup) (domain.NormalizedRecord, []domain.NormalizedRecord, domain.AuditTrail) {
	members := make([]domain.NormalizedRecord, len(g.Members))
	copy(members, g.Members)
	sort.SliceStable(members, func(i, j int) bool {
		return Less(&members[i], &members[j])
	})

	survivor := members[0]
	survivor.Status = domain.StatusKept
	if len(members) == 1 {
		return survivor, nil, nil
	}

	dups := make([]domain.NormalizedRecord, 0, len(members)-1)
	entries := make(domain.AuditTrail, 0, len(members)-1)
	for _, m := range members[1:] {
		m.Status = domain.StatusDuplicate
		dups = append(dups, m)
		entries = append(entries, domain.DuplicateEntry{
			TransactionID: g.TransactionID,
			DuplicateRow:  m.RowNumber,
			SurvivorRow:   survivor.RowNumber,
			Reason:        reason(&survivor, &m),
		})
	}
	return survivor, dups, entries
}

func reason(survivor, dup *domain.NormalizedRecord) string {
	switch {
	case EmailCompletenessRank(survivor) < EmailCompletenessRank(dup):
		return ReasonEmailCompleteness
	case compareDates(survivor, dup) < 0:
		return ReasonEarlierOrderDate
	default:
		return ReasonInputOrder
	}
}

// Summary renders a one-line description of a result for logs.
func (r Result) Summary() string {
	return fmt.Sprintf("%d groups, %d kept, %d duplicates", r.Groups, len(r.Kept), len(r.Duplicates))
}
