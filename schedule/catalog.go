package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Date and time layouts used by the schedule table and the tool arguments.
const (
	DateLayout     = "02-01-2006"
	TimeLayout     = "15:04"
	DateTimeLayout = DateLayout + " " + TimeLayout
)

// Argument patterns exposed in tool schemas.
const (
	DatePattern     = `^\d{2}-\d{2}-\d{4}$`
	DateTimePattern = `^\d{2}-\d{2}-\d{4} \d{2}:\d{2}$`
)

// Specializations offered by the hospital.
const (
	GeneralDentist   = "general_dentist"
	CosmeticDentist  = "cosmetic_dentist"
	Prosthodontist   = "prosthodontist"
	PediatricDentist = "pediatric_dentist"
	EmergencyDentist = "emergency_dentist"
	OralSurgeon      = "oral_surgeon"
	Orthodontist     = "orthodontist"
	GeneralMedicine  = "general_medicine"
)

// Doctor is one entry of the closed doctor catalog.
type Doctor struct {
	Name           string
	Specialization string
}

// Catalog lists every doctor with availability in the schedule table.
var Catalog = []Doctor{
	{Name: "john doe", Specialization: GeneralDentist},
	{Name: "jane smith", Specialization: CosmeticDentist},
	{Name: "emily johnson", Specialization: Prosthodontist},
	{Name: "michael green", Specialization: PediatricDentist},
	{Name: "lisa brown", Specialization: EmergencyDentist},
	{Name: "kevin anderson", Specialization: OralSurgeon},
	{Name: "robert martinez", Specialization: Orthodontist},
	{Name: "susan davis", Specialization: GeneralDentist},
	{Name: "daniel miller", Specialization: GeneralDentist},
	{Name: "sarah wilson", Specialization: GeneralDentist},
	{Name: "alex turner", Specialization: GeneralMedicine},
}

// DoctorNames returns the sorted doctor enumeration.
func DoctorNames() []string {
	names := make([]string, 0, len(Catalog))
	for _, d := range Catalog {
		names = append(names, d.Name)
	}
	sort.Strings(names)
	return names
}

// Specializations returns the sorted specialization enumeration.
func Specializations() []string {
	seen := map[string]bool{}
	var out []string
	for _, d := range Catalog {
		if !seen[d.Specialization] {
			seen[d.Specialization] = true
			out = append(out, d.Specialization)
		}
	}
	sort.Strings(out)
	return out
}

// SpecializationOf returns the specialization of a catalog doctor.
func SpecializationOf(doctor string) (string, bool) {
	for _, d := range Catalog {
		if d.Name == doctor {
			return d.Specialization, true
		}
	}
	return "", false
}

// SlotKey identifies one bookable unit.
type SlotKey struct {
	Date   string // DD-MM-YYYY
	Time   string // HH:MM
	Doctor string
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%s %s %s", k.Date, k.Time, k.Doctor)
}

// ParseDate validates a DD-MM-YYYY calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("the date must be in the format 'DD-MM-YYYY': %q", s)
	}
	return t, nil
}

// ParseSlotKey splits a "DD-MM-YYYY HH:MM" value into a slot key for doctor.
func ParseSlotKey(datetime, doctor string) (SlotKey, error) {
	t, err := time.Parse(DateTimeLayout, strings.TrimSpace(datetime))
	if err != nil {
		return SlotKey{}, fmt.Errorf("the date should be in format 'DD-MM-YYYY HH:MM': %q", datetime)
	}
	return SlotKey{Date: t.Format(DateLayout), Time: t.Format(TimeLayout), Doctor: doctor}, nil
}

// FormatAMPM converts a 24-hour HH:MM slot into "9:00 AM" style.
func FormatAMPM(slot string) string {
	t, err := time.Parse(TimeLayout, slot)
	if err != nil {
		return slot
	}
	return t.Format("3:04 PM")
}

// TitleCase upper-cases the first letter of each word of a doctor name.
func TitleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
