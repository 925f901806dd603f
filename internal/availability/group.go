package availability

import (
	"sort"
	"strings"

	"github.com/wolfman30/homewellness-booking/internal/booking"
	"github.com/wolfman30/homewellness-booking/internal/catalog"
)

// Grouper folds bookable slots into therapist/treatment rows.
type Grouper struct {
	defaultLocation string
}

func NewGrouper(defaultLocation string) *Grouper {
	return &Grouper{defaultLocation: strings.TrimSpace(defaultLocation)}
}

type slotInfo struct {
	therapist string
	name      string
	category  string
}

// Group keys rows by (therapist, base treatment name). Within a row slots
// are sorted by start time with repeated bookable item ids removed. Rows
// are ordered by therapist then treatment.
func (g *Grouper) Group(slots []booking.BookableSlot, cat *catalog.Catalog) []booking.TherapistTreatmentGroup {
	groups := map[string]*booking.TherapistTreatmentGroup{}
	seen := map[string]map[string]struct{}{}
	var keys []string

	for _, slot := range slots {
		if !slot.Valid() {
			continue
		}
		if strings.TrimSpace(slot.LocationName) == "" {
			slot.LocationName = g.defaultLocation
		}
		info := describe(slot, cat)
		base := catalog.BaseName(info.name)
		grp := booking.TherapistTreatmentGroup{Therapist: info.therapist, BaseName: base}
		key := grp.Key()

		existing, ok := groups[key]
		if !ok {
			grp.Category = info.category
			existing = &grp
			groups[key] = existing
			seen[key] = map[string]struct{}{}
			keys = append(keys, key)
		}
		if _, dup := seen[key][slot.BookableItemID]; dup {
			continue
		}
		seen[key][slot.BookableItemID] = struct{}{}
		existing.Slots = append(existing.Slots, slot)
	}

	out := make([]booking.TherapistTreatmentGroup, 0, len(keys))
	for _, key := range keys {
		grp := groups[key]
		sort.SliceStable(grp.Slots, func(i, j int) bool {
			a, b := grp.Slots[i], grp.Slots[j]
			if !a.StartDateTime.Equal(b.StartDateTime) {
				return a.StartDateTime.Before(b.StartDateTime)
			}
			return a.BookableItemID < b.BookableItemID
		})
		first := grp.Slots[0]
		grp.SessionTypeID = first.SessionTypeID
		grp.DurationMinutes, grp.Price = resolveMetadata(first, cat)
		grp.Variants = variants(grp.Slots, cat)
		out = append(out, *grp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Therapist != out[j].Therapist {
			return out[i].Therapist < out[j].Therapist
		}
		return out[i].BaseName < out[j].BaseName
	})
	return out
}

func describe(slot booking.BookableSlot, cat *catalog.Catalog) slotInfo {
	info := slotInfo{therapist: catalog.GeneralTherapist}
	if svc, ok := cat.Service(slot.SessionTypeID); ok {
		info.name = svc.Name
		info.category = svc.Category
		info.therapist = strings.TrimSpace(svc.TherapistName)
	}
	if info.name == "" {
		info.name = slot.SessionTypeName
	}
	if info.name == "" {
		info.name = "Treatment " + slot.SessionTypeID
	}
	if info.therapist == "" || info.therapist == catalog.GeneralTherapist {
		if name := strings.TrimSpace(slot.StaffName); name != "" {
			info.therapist = name
		} else {
			info.therapist = catalog.GeneralTherapist
		}
	}
	return info
}

// resolveMetadata prefers catalog duration/price for the slot's session
// type, then session-type metadata, then the slot itself.
func resolveMetadata(slot booking.BookableSlot, cat *catalog.Catalog) (int, float64) {
	var (
		duration int
		price    float64
	)
	if svc, ok := cat.Service(slot.SessionTypeID); ok {
		duration = svc.DurationMinutes
		price = svc.Price
	}
	if st, ok := cat.SessionType(slot.SessionTypeID); ok {
		if duration <= 0 {
			duration = st.DefaultTimeLength
		}
		if price <= 0 && st.Price != nil {
			price = *st.Price
		}
	}
	if duration <= 0 {
		duration = slot.DurationMinutes()
	}
	if price <= 0 && slot.Price != nil {
		price = *slot.Price
	}
	return duration, price
}

// variants lists one entry per distinct duration, shortest first.
func variants(slots []booking.BookableSlot, cat *catalog.Catalog) []booking.Variant {
	byDuration := map[int]booking.Variant{}
	seenType := map[string]struct{}{}
	for _, slot := range slots {
		if _, ok := seenType[slot.SessionTypeID]; ok {
			continue
		}
		seenType[slot.SessionTypeID] = struct{}{}
		duration, price := resolveMetadata(slot, cat)
		if _, ok := byDuration[duration]; ok {
			continue
		}
		byDuration[duration] = booking.Variant{
			SessionTypeID:   slot.SessionTypeID,
			Name:            describe(slot, cat).name,
			DurationMinutes: duration,
			Price:           price,
		}
	}
	out := make([]booking.Variant, 0, len(byDuration))
	for _, v := range byDuration {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DurationMinutes < out[j].DurationMinutes })
	return out
}

// FilterTherapist keeps rows whose therapist matches name, ignoring case.
func FilterTherapist(groups []booking.TherapistTreatmentGroup, name string) []booking.TherapistTreatmentGroup {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return groups
	}
	out := make([]booking.TherapistTreatmentGroup, 0, len(groups))
	for _, g := range groups {
		if strings.ToLower(g.Therapist) == name {
			out = append(out, g)
		}
	}
	return out
}
