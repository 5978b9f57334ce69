package course

import (
	"encoding/json"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo/core"
)

var (
	activityTypeTag  = "activitytype"
	activityTypeText = "must be one of: " + joinTypes(ActivityTypes)
)

// InitValidators registers the course validators; core.InitValidators must run first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(activityTypeTag, activityTypeValidation)
	core.RegisterCustomTranslation(validate, translator, activityTypeTag, activityTypeText)
}

func joinTypes(types []ActivityType) string {
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}

// activityTypeValidation checks that the field holds one of the known ActivityTypes.
func activityTypeValidation(fl validator.FieldLevel) bool {
	return ActivityType(fl.Field().String()).IsValid()
}

type checker struct {
	validate   *validator.Validate
	translator ut.Translator
}

// check validates s and translates failures into a *core.ValidationError.
func (c checker) check(s interface{}, prefix ...string) error {
	if err := c.validate.Struct(s); err != nil {
		return core.TranslateValidationErrors(err, c.translator, prefix...)
	}
	return nil
}

// payload decodes raw into the variant for t and checks its required fields.
func (c checker) payload(t ActivityType, raw json.RawMessage) (Payload, error) {
	p, err := DecodePayload(t, raw)
	if err != nil {
		return nil, err
	}
	if err = c.check(p, payloadField); err != nil {
		return nil, err
	}
	return p, nil
}

func (c checker) newSection(ns *NewSection) error {
	ns.Clean()
	return c.check(ns)
}

func (c checker) newActivity(na *NewActivity) (Payload, error) {
	na.Clean()
	if err := c.check(na); err != nil {
		return nil, err
	}
	return c.payload(na.Type, na.Payload)
}

// updateActivity validates ua against the stored activity type; the returned Payload is nil when unchanged.
func (c checker) updateActivity(t ActivityType, ua *UpdateActivity) (Payload, error) {
	ua.Clean()
	if ua.IsEmpty() {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "title", Error: "nothing to update"})
	}
	if err := c.check(ua); err != nil {
		return nil, err
	}
	if ua.Title != nil {
		title, err := c.name("title", *ua.Title)
		if err != nil {
			return nil, err
		}
		ua.Title = &title
	}
	if len(ua.Payload) == 0 {
		return nil, nil
	}
	return c.payload(t, ua.Payload)
}

func (c checker) name(fld, name string) (string, error) {
	name = core.CleanString(name)
	if err := c.validate.Var(name, "required,notblank,max=255"); err != nil {
		if vErrs, ok := err.(validator.ValidationErrors); ok && len(vErrs) > 0 {
			return "", core.NewValidationError(nil, core.FieldError{Field: fld, Error: nameErrorText(vErrs[0].Tag())})
		}
		return "", err
	}
	return name, nil
}

func nameErrorText(tag string) string {
	if tag == "max" {
		return "must be at most 255 characters"
	}
	return "this field is required"
}
