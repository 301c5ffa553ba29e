package tool

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/carebook/core"
	"github.com/hupe1980/carebook/schedule"
)

// Domain tool names.
const (
	CheckAvailabilityByDoctorName         = "check_availability_by_doctor"
	CheckAvailabilityBySpecializationName = "check_availability_by_specialization"
	SetAppointmentName                    = "set_appointment"
	CancelAppointmentName                 = "cancel_appointment"
	RescheduleAppointmentName             = "reschedule_appointment"
)

// Result texts returned to the specialists.
const (
	MsgNoAvailability      = "No availability in the entire day"
	MsgBooked              = "Successfully done"
	MsgSlotUnavailable     = "No available appointments for that particular case"
	MsgCancelled           = "Successfully cancelled"
	MsgAppointmentNotFound = "You don't have any appointment with that specifications"
	MsgRescheduled         = "Successfully rescheduled for the desired time"
	MsgNoSlotInPeriod      = "No available slots in the desired period"
)

// Patient identification numbers have 7 or 8 digits.
const (
	minPatientID = 1000000
	maxPatientID = 99999999
)

// ScheduleTools bundles the domain tools bound to one schedule store.
type ScheduleTools struct {
	CheckAvailabilityByDoctor         *FunctionTool
	CheckAvailabilityBySpecialization *FunctionTool
	SetAppointment                    *FunctionTool
	CancelAppointment                 *FunctionTool
	RescheduleAppointment             *FunctionTool
}

// NewScheduleTools builds the availability and booking tools over store.
func NewScheduleTools(store schedule.Store) *ScheduleTools {
	return &ScheduleTools{
		CheckAvailabilityByDoctor: NewFunctionTool(
			CheckAvailabilityByDoctorName,
			"Checking the database if we have availability for the specific doctor. The parameters should be mentioned by the user in the query.",
			objectSchema(map[string]any{
				"desired_date": dateProperty("The desired date (DD-MM-YYYY)"),
				"doctor_name":  doctorProperty(),
			}, "desired_date", "doctor_name"),
			func(tc *core.ToolContext, args map[string]any) (any, error) {
				date, err := dateArg(CheckAvailabilityByDoctorName, args, "desired_date")
				if err != nil {
					return nil, err
				}
				doctor := args["doctor_name"].(string)

				slots, err := store.AvailabilityByDoctor(tc.Context(), date, doctor)
				if err != nil {
					return nil, storeError(CheckAvailabilityByDoctorName, err)
				}
				return FormatDoctorAvailability(doctor, date, slots), nil
			},
		),

		CheckAvailabilityBySpecialization: NewFunctionTool(
			CheckAvailabilityBySpecializationName,
			"Checking the database if we have availability for the specific specialization. The parameters should be mentioned by the user in the query.",
			objectSchema(map[string]any{
				"desired_date":   dateProperty("The desired date (DD-MM-YYYY)"),
				"specialization": map[string]any{"type": "string", "enum": schedule.Specializations(), "description": "The desired specialization"},
			}, "desired_date", "specialization"),
			func(tc *core.ToolContext, args map[string]any) (any, error) {
				date, err := dateArg(CheckAvailabilityBySpecializationName, args, "desired_date")
				if err != nil {
					return nil, err
				}
				spec := args["specialization"].(string)

				groups, err := store.AvailabilityBySpecialization(tc.Context(), date, spec)
				if err != nil {
					return nil, storeError(CheckAvailabilityBySpecializationName, err)
				}
				return FormatSpecializationAvailability(spec, date, groups), nil
			},
		),

		SetAppointment: NewFunctionTool(
			SetAppointmentName,
			"Set appointment or slot with the doctor. The parameters MUST be mentioned by the user in the query.",
			objectSchema(map[string]any{
				"desired_date": dateTimeProperty("The appointment date and time (DD-MM-YYYY HH:MM)"),
				"id_number":    idProperty(),
				"doctor_name":  doctorProperty(),
			}, "desired_date", "id_number", "doctor_name"),
			func(tc *core.ToolContext, args map[string]any) (any, error) {
				key, err := slotArg(SetAppointmentName, args, "desired_date")
				if err != nil {
					return nil, err
				}

				err = store.Book(tc.Context(), key, patientArg(args))
				switch {
				case err == nil:
					return MsgBooked, nil
				case errors.Is(err, schedule.ErrSlotUnavailable):
					return MsgSlotUnavailable, nil
				default:
					return nil, storeError(SetAppointmentName, err)
				}
			},
		),

		CancelAppointment: NewFunctionTool(
			CancelAppointmentName,
			"Canceling an appointment. The parameters MUST be mentioned by the user in the query.",
			objectSchema(map[string]any{
				"date":        dateTimeProperty("The appointment date and time (DD-MM-YYYY HH:MM)"),
				"id_number":   idProperty(),
				"doctor_name": doctorProperty(),
			}, "date", "id_number", "doctor_name"),
			func(tc *core.ToolContext, args map[string]any) (any, error) {
				key, err := slotArg(CancelAppointmentName, args, "date")
				if err != nil {
					return nil, err
				}

				err = store.Cancel(tc.Context(), key, patientArg(args))
				switch {
				case err == nil:
					return MsgCancelled, nil
				case errors.Is(err, schedule.ErrAppointmentNotFound):
					return MsgAppointmentNotFound, nil
				default:
					return nil, storeError(CancelAppointmentName, err)
				}
			},
		),

		RescheduleAppointment: NewFunctionTool(
			RescheduleAppointmentName,
			"Rescheduling an appointment. The parameters MUST be mentioned by the user in the query.",
			objectSchema(map[string]any{
				"old_date":    dateTimeProperty("The current appointment date and time (DD-MM-YYYY HH:MM)"),
				"new_date":    dateTimeProperty("The desired new date and time (DD-MM-YYYY HH:MM)"),
				"id_number":   idProperty(),
				"doctor_name": doctorProperty(),
			}, "old_date", "new_date", "id_number", "doctor_name"),
			func(tc *core.ToolContext, args map[string]any) (any, error) {
				from, err := slotArg(RescheduleAppointmentName, args, "old_date")
				if err != nil {
					return nil, err
				}
				to, err := slotArg(RescheduleAppointmentName, args, "new_date")
				if err != nil {
					return nil, err
				}

				err = store.Reschedule(tc.Context(), from, to, patientArg(args))
				switch {
				case err == nil:
					return MsgRescheduled, nil
				case errors.Is(err, schedule.ErrSlotUnavailable):
					return MsgNoSlotInPeriod, nil
				case errors.Is(err, schedule.ErrAppointmentNotFound):
					return MsgAppointmentNotFound, nil
				default:
					return nil, storeError(RescheduleAppointmentName, err)
				}
			},
		),
	}
}

// InfoTools returns the read-only availability tools.
func (s *ScheduleTools) InfoTools() []Tool {
	return []Tool{s.CheckAvailabilityBySpecialization, s.CheckAvailabilityByDoctor}
}

// BookingTools returns the mutating appointment tools.
func (s *ScheduleTools) BookingTools() []Tool {
	return []Tool{s.SetAppointment, s.RescheduleAppointment, s.CancelAppointment}
}

// All returns every domain tool.
func (s *ScheduleTools) All() []Tool {
	return append(s.InfoTools(), s.BookingTools()...)
}

// FormatDoctorAvailability renders the free slots of one doctor.
func FormatDoctorAvailability(doctor, date string, slots []string) string {
	if len(slots) == 0 {
		return MsgNoAvailability
	}
	return fmt.Sprintf("Availability for %s on %s:\nAvailable slots: %s", doctor, date, joinAMPM(slots))
}

// FormatSpecializationAvailability renders free slots grouped by doctor.
func FormatSpecializationAvailability(specialization, date string, groups []schedule.DoctorSlots) string {
	if len(groups) == 0 {
		return MsgNoAvailability
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Availability for %s on %s:\n", specialization, date)
	for _, g := range groups {
		fmt.Fprintf(&sb, "%s: %s\n", schedule.TitleCase(g.Doctor), joinAMPM(g.Slots))
	}
	return sb.String()
}

func joinAMPM(slots []string) string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = schedule.FormatAMPM(s)
	}
	return strings.Join(out, ", ")
}

func objectSchema(props map[string]any, required ...string) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func dateProperty(desc string) map[string]any {
	return map[string]any{"type": "string", "pattern": schedule.DatePattern, "description": desc}
}

func dateTimeProperty(desc string) map[string]any {
	return map[string]any{"type": "string", "pattern": schedule.DateTimePattern, "description": desc}
}

func doctorProperty() map[string]any {
	return map[string]any{"type": "string", "enum": schedule.DoctorNames(), "description": "The doctor name"}
}

func idProperty() map[string]any {
	return map[string]any{
		"type":        "integer",
		"minimum":     minPatientID,
		"maximum":     maxPatientID,
		"description": "Identification number of the patient as integer (7-8 digits)",
	}
}

func dateArg(tool string, args map[string]any, field string) (string, error) {
	raw, _ := args[field].(string)
	t, err := schedule.ParseDate(raw)
	if err != nil {
		return "", &ToolError{Tool: tool, Message: err.Error(), Code: CodeValidation, Details: &ValidationError{Field: field, Value: raw, Message: err.Error()}}
	}
	return t.Format(schedule.DateLayout), nil
}

func slotArg(tool string, args map[string]any, field string) (schedule.SlotKey, error) {
	raw, _ := args[field].(string)
	doctor, _ := args["doctor_name"].(string)
	key, err := schedule.ParseSlotKey(raw, doctor)
	if err != nil {
		return schedule.SlotKey{}, &ToolError{Tool: tool, Message: err.Error(), Code: CodeValidation, Details: &ValidationError{Field: field, Value: raw, Message: err.Error()}}
	}
	return key, nil
}

// patientArg reads a schema-validated integer id.
func patientArg(args map[string]any) int64 {
	switch v := args["id_number"].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

func storeError(tool string, err error) error {
	if schedule.IsBusyError(err) {
		return &ToolError{Tool: tool, Message: "the schedule is busy, please retry", Code: CodeStoreBusy}
	}
	return fmt.Errorf("%s: %w", tool, err)
}
