package content

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Amount is a numeric settings field. It decodes from JSON numbers or
// numeric strings; anything else reads as zero.
type Amount float64

func (a *Amount) UnmarshalJSON(b []byte) error {
	*a = 0
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		*a = ParseAmount(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*a = Amount(f)
	}
	return nil
}

func (a Amount) String() string {
	return strconv.FormatFloat(float64(a), 'f', -1, 64)
}

// ParseAmount reads a user-entered number, tolerating surrounding space,
// a leading '$' and thousands separators.
func ParseAmount(s string) Amount {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return Amount(f)
}

type OtherItem struct {
	Label string `json:"label"`
	Value Amount `json:"value"`
}

// Settings is the finances page content stored under SettingsKey.
type Settings struct {
	Budget            Amount      `json:"budget"`
	TotalExpenses     Amount      `json:"totalExpenses"`
	Remaining         Amount      `json:"remaining"`
	Slice1Label       string      `json:"slice1Label"`
	Slice1Value       Amount      `json:"slice1Value"`
	Slice2Label       string      `json:"slice2Label"`
	Slice2Value       Amount      `json:"slice2Value"`
	Slice3Label       string      `json:"slice3Label"`
	Slice3Value       Amount      `json:"slice3Value"`
	CoveredValue      Amount      `json:"coveredValue"`
	CoverageRemaining Amount      `json:"coverageRemaining"`
	FTCTitle          string      `json:"ftcTitle"`
	FTCImageData      string      `json:"ftcImageData"`
	FTCProgress       Amount      `json:"ftcProgress"`
	FTCDetails        string      `json:"ftcDetails"`
	DonateContact     string      `json:"donateContact"`
	InstagramURL      string      `json:"instagramUrl"`
	OtherItems        []OtherItem `json:"otherItems"`
}

const otherItemsPrefix = "otherItems."

func settingsFields() []string {
	return []string{
		"budget", "totalExpenses", "remaining",
		"slice1Label", "slice1Value",
		"slice2Label", "slice2Value",
		"slice3Label", "slice3Value",
		"coveredValue", "coverageRemaining",
		"ftcTitle", "ftcImageData", "ftcProgress", "ftcDetails",
		"donateContact", "instagramUrl",
	}
}

// OtherItemField names the flattened form field of an additional item.
func OtherItemField(index int, field string) string {
	return otherItemsPrefix + strconv.Itoa(index) + "." + field
}

// Record flattens the settings into the form record shape.
func (s Settings) Record() Record {
	r := Record{
		"budget":            s.Budget.String(),
		"totalExpenses":     s.TotalExpenses.String(),
		"remaining":         s.Remaining.String(),
		"slice1Label":       s.Slice1Label,
		"slice1Value":       s.Slice1Value.String(),
		"slice2Label":       s.Slice2Label,
		"slice2Value":       s.Slice2Value.String(),
		"slice3Label":       s.Slice3Label,
		"slice3Value":       s.Slice3Value.String(),
		"coveredValue":      s.CoveredValue.String(),
		"coverageRemaining": s.CoverageRemaining.String(),
		"ftcTitle":          s.FTCTitle,
		"ftcProgress":       s.FTCProgress.String(),
		"ftcDetails":        s.FTCDetails,
		"donateContact":     s.DonateContact,
		"instagramUrl":      s.InstagramURL,
	}
	if s.FTCImageData != "" {
		r["ftcImageData"] = s.FTCImageData
	}
	for i, it := range s.OtherItems {
		r[OtherItemField(i, "label")] = it.Label
		r[OtherItemField(i, "value")] = it.Value.String()
	}
	return r
}

// SettingsFromRecord is the inverse of Settings.Record. Additional items
// keep the order of their indexes; gaps are closed.
func SettingsFromRecord(r Record) Settings {
	s := Settings{
		Budget:            ParseAmount(r.Get("budget")),
		TotalExpenses:     ParseAmount(r.Get("totalExpenses")),
		Remaining:         ParseAmount(r.Get("remaining")),
		Slice1Label:       r.Get("slice1Label"),
		Slice1Value:       ParseAmount(r.Get("slice1Value")),
		Slice2Label:       r.Get("slice2Label"),
		Slice2Value:       ParseAmount(r.Get("slice2Value")),
		Slice3Label:       r.Get("slice3Label"),
		Slice3Value:       ParseAmount(r.Get("slice3Value")),
		CoveredValue:      ParseAmount(r.Get("coveredValue")),
		CoverageRemaining: ParseAmount(r.Get("coverageRemaining")),
		FTCTitle:          r.Get("ftcTitle"),
		FTCImageData:      r.Get("ftcImageData"),
		FTCProgress:       ParseAmount(r.Get("ftcProgress")),
		FTCDetails:        r.Get("ftcDetails"),
		DonateContact:     r.Get("donateContact"),
		InstagramURL:      r.Get("instagramUrl"),
	}

	byIndex := map[int]*OtherItem{}
	for k, v := range r {
		if !strings.HasPrefix(k, otherItemsPrefix) {
			continue
		}
		idxStr, field, ok := strings.Cut(strings.TrimPrefix(k, otherItemsPrefix), ".")
		if !ok {
			continue
		}
		idx, err := strconv.Atoi(idxStr)
		if err != nil || idx < 0 {
			continue
		}
		it := byIndex[idx]
		if it == nil {
			it = &OtherItem{}
			byIndex[idx] = it
		}
		switch field {
		case "label":
			it.Label = v
		case "value":
			it.Value = ParseAmount(v)
		}
	}
	idxs := make([]int, 0, len(byIndex))
	for i := range byIndex {
		idxs = append(idxs, i)
	}
	sort.Ints(idxs)
	for _, i := range idxs {
		s.OtherItems = append(s.OtherItems, *byIndex[i])
	}
	return s
}

// Slice is one labeled share of the expense breakdown.
type Slice struct {
	Label   string
	Value   Amount
	Percent float64
}

// Slices returns the three labeled slices with their share of the slice
// total. Percentages are zero when the total is zero.
func (s Settings) Slices() []Slice {
	out := []Slice{
		{Label: s.Slice1Label, Value: s.Slice1Value},
		{Label: s.Slice2Label, Value: s.Slice2Value},
		{Label: s.Slice3Label, Value: s.Slice3Value},
	}
	var total float64
	for _, sl := range out {
		if sl.Value > 0 {
			total += float64(sl.Value)
		}
	}
	if total == 0 {
		return out
	}
	for i := range out {
		if out[i].Value > 0 {
			out[i].Percent = math.Round(float64(out[i].Value)/total*1000) / 10
		}
	}
	return out
}

// ProgressPercent clamps the sub-project progress into [0, 100].
func (s Settings) ProgressPercent() float64 {
	return math.Max(0, math.Min(100, float64(s.FTCProgress)))
}
