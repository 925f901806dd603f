package catalog

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/wolfman30/homewellness-booking/internal/booking"
)

// Stats summarises one normalization pass.
type Stats struct {
	Total             int            `json:"totalInMindbody"`
	NotBookableOnline int            `json:"notBookableOnline"`
	WrongCategory     int            `json:"wrongCategory"`
	NoDuration        int            `json:"noDuration"`
	DuplicatesRemoved int            `json:"duplicatesRemoved"`
	FinalCount        int            `json:"finalCount"`
	CategoriesFound   map[string]int `json:"categoriesFound"`
}

// Normalizer turns raw provider services into the booking catalog.
type Normalizer struct {
	matcher *CategoryMatcher
}

func NewNormalizer(categories []string) *Normalizer {
	return &Normalizer{matcher: NewCategoryMatcher(categories)}
}

// Matcher exposes the category matcher the normalizer was built with.
func (n *Normalizer) Matcher() *CategoryMatcher {
	return n.matcher
}

// Normalize keeps services in a configured category that are not
// explicitly closed to online booking, extracts therapist and duration,
// and drops duplicates keeping the first occurrence. staff is optional and
// only used for therapist photos.
func (n *Normalizer) Normalize(raw []booking.RawService, staff []booking.Staff) ([]booking.Service, Stats) {
	stats := Stats{Total: len(raw), CategoriesFound: map[string]int{}}
	photos := photoIndex(staff)
	seen := make(map[string]struct{}, len(raw))
	out := make([]booking.Service, 0, len(raw))

	for _, rs := range raw {
		source := rs.CategoryName
		if source == "" {
			source = rs.Program
		}
		category, ok := n.matcher.Match(source)
		if !ok {
			stats.WrongCategory++
			continue
		}
		stats.CategoriesFound[category]++

		if rs.AllowOnlineBooking != nil && !*rs.AllowOnlineBooking {
			stats.NotBookableOnline++
			continue
		}

		duration := ResolveDuration(rs.Name, rs.Duration, rs.Length, rs.SessionLength)
		if duration <= 0 {
			duration = 0
			stats.NoDuration++
		}

		therapist := ExtractTherapist(rs.Name)
		key := dedupKey(rs, therapist, duration)
		if _, dup := seen[key]; dup {
			stats.DuplicatesRemoved++
			continue
		}
		seen[key] = struct{}{}

		svc := booking.Service{
			ID:              rs.ID,
			Name:            rs.Name,
			Category:        category,
			TherapistName:   therapist,
			DurationMinutes: duration,
			Price:           resolvePrice(rs),
			BookableOnline:  true,
		}
		if therapist != GeneralTherapist {
			svc.TherapistPhoto = lookupPhoto(photos, therapist)
		}
		out = append(out, svc)
	}
	stats.FinalCount = len(out)
	return out, stats
}

func dedupKey(rs booking.RawService, therapist string, duration int) string {
	if rs.ID != "" {
		return "id:" + rs.ID
	}
	sum := md5.Sum([]byte(rs.Name + therapist + strconv.Itoa(duration)))
	return "hash:" + hex.EncodeToString(sum[:])
}

func resolvePrice(rs booking.RawService) float64 {
	switch {
	case rs.Price != nil:
		return *rs.Price
	case rs.OnlinePrice != nil:
		return *rs.OnlinePrice
	default:
		return 0
	}
}

// photoIndex keys staff image URLs by full name and by first name.
func photoIndex(staff []booking.Staff) map[string]string {
	idx := make(map[string]string, len(staff)*2)
	for _, s := range staff {
		full := s.FullName()
		if full == "" || s.ImageURL == "" {
			continue
		}
		idx[full] = s.ImageURL
		if s.FirstName != "" {
			if _, exists := idx[s.FirstName]; !exists {
				idx[s.FirstName] = s.ImageURL
			}
		}
	}
	return idx
}

func lookupPhoto(idx map[string]string, therapist string) string {
	if url, ok := idx[therapist]; ok {
		return url
	}
	first := strings.Fields(therapist)
	if len(first) > 0 {
		return idx[first[0]]
	}
	return ""
}
