package validation

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/julianstephens/habitlog/internal/constants"
	apperr "github.com/julianstephens/habitlog/internal/errors"
	"github.com/julianstephens/habitlog/internal/models"
	"github.com/julianstephens/habitlog/internal/utils"
)

// stringOf dereferences pointer fields so rules see the underlying string
func stringOf(value interface{}) string {
	v, _ := validation.Indirect(value)
	s, _ := v.(string)
	return s
}

var notBlank = validation.By(func(value interface{}) error {
	if strings.TrimSpace(stringOf(value)) == "" {
		return validation.NewError("validation_blank", "cannot be blank")
	}
	return nil
})

var timezone = validation.By(func(value interface{}) error {
	if !utils.ValidateTimezone(stringOf(value)) {
		return validation.NewError("validation_timezone", "must be a valid IANA timezone or Local")
	}
	return nil
})

var date = validation.By(func(value interface{}) error {
	if !utils.ValidateDate(stringOf(value)) {
		return validation.NewError("validation_date", "must be a date in YYYY-MM-DD format")
	}
	return nil
})

// invalid tags ozzo errors so callers can match errors.ErrInvalidArgument
func invalid(err error) error {
	if err == nil {
		return nil
	}
	return apperr.Invalid(err)
}

// CreateHabit checks the user-supplied fields of a new habit
func CreateHabit(in models.CreateHabit) error {
	return invalid(validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, notBlank, validation.RuneLength(1, constants.MaxHabitNameLen)),
		validation.Field(&in.Goal, validation.RuneLength(0, constants.MaxHabitGoalLen)),
		validation.Field(&in.Icon, validation.RuneLength(0, constants.MaxHabitIconLen)),
	))
}

// HabitPatch checks the fields a patch sets; nil fields are skipped
func HabitPatch(p models.HabitPatch) error {
	return invalid(validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.NilOrNotEmpty, validation.When(p.Name != nil, notBlank), validation.RuneLength(1, constants.MaxHabitNameLen)),
		validation.Field(&p.Goal, validation.RuneLength(0, constants.MaxHabitGoalLen)),
		validation.Field(&p.Icon, validation.RuneLength(0, constants.MaxHabitIconLen)),
	))
}

// LogNote checks a completion note
func LogNote(note string) error {
	return invalid(validation.Validate(note, validation.RuneLength(0, constants.MaxLogNoteLen)))
}

// Date checks a YYYY-MM-DD calendar date
func Date(value string) error {
	return invalid(validation.Validate(value, validation.Required, date))
}

// Settings checks persisted user settings
func Settings(s models.Settings) error {
	return invalid(validation.ValidateStruct(&s,
		validation.Field(&s.Timezone, validation.Required, timezone),
		validation.Field(&s.StatsWindowDays, validation.Required, validation.Min(1), validation.Max(3650)),
	))
}
