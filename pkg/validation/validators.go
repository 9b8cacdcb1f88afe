package validation

import (
	"regexp"
	"strings"

	"github.com/goliatone/go-crmpanel/pkg/persian"
)

// Message identifiers. The Persian text in messages is the default rendering;
// pkg/intl can localise by id.
const (
	MsgNotEmpty          = "Validation.NotEmpty"
	MsgNotEmptySelection = "Validation.NotEmptySelection"
	MsgDigits            = "Validation.Digits"
	MsgCardNumber        = "Validation.CardNumber"
	MsgDate              = "Validation.Date"
	MsgContractDuration  = "Validation.ContractDuration"
	MsgPersonnelRole     = "Validation.PersonnelRole"
	MsgGender            = "Validation.Gender"
	MsgSkillDuplication  = "Validation.SkillDuplication"
)

var messages = map[string]string{
	MsgNotEmpty:          "ورودی نباید خالی باشد",
	MsgNotEmptySelection: "موردی را انتخاب کنید",
	MsgDigits:            "ورودی باید به فرمت تماما عدد باشد",
	MsgCardNumber:        "کارت بانکی صحیح نمی باشد",
	MsgDate:              "تاریخ صحیح نیست",
	MsgContractDuration:  "تاریخ پایان همکاری باید بزرگتر از تاریخ شروع همکاری باشد",
	MsgPersonnelRole:     "پرسنل حداقل باید یک نقش داشته باشد",
	MsgGender:            "لطفا جنسیت این فرد را انتخاب کنید",
	MsgSkillDuplication:  "مهارت تکراری در لیست مهارت ها وجود دارد آن را اصلاح کنید",
}

// DefaultMessage returns the built-in Persian text for a message id.
func DefaultMessage(id string) string {
	return messages[id]
}

// Result is the outcome of a single validator run.
type Result struct {
	Valid bool `json:"valid"`
	// MessageID identifies the failure message for localisation.
	MessageID string `json:"messageId,omitempty"`
	Message   string `json:"message"`
}

func result(valid bool, id string) Result {
	return Result{Valid: valid, MessageID: id, Message: messages[id]}
}

// Validator checks a single input value.
type Validator func(value string) Result

var (
	digitsPattern     = regexp.MustCompile(`^\d+$`)
	cardNumberPattern = regexp.MustCompile(`^\d{16}$`)
	datePattern       = regexp.MustCompile(`^(13|14)\d{2}/(0[1-9]|1[0-2])/(0[1-9]|[12]\d|3[01])$`)
)

// NotEmpty fails on blank input.
func NotEmpty(value string) Result {
	return result(strings.TrimSpace(value) != "", MsgNotEmpty)
}

// IsDigit accepts ASCII digits only.
func IsDigit(value string) Result {
	return result(digitsPattern.MatchString(value), MsgDigits)
}

// CardNumber accepts exactly sixteen ASCII digits.
func CardNumber(value string) Result {
	return result(cardNumberPattern.MatchString(value), MsgCardNumber)
}

// Date accepts Jalali dates in the 13xx/14xx range written as YYYY/MM/DD,
// with Persian digits allowed.
func Date(value string) Result {
	return result(datePattern.MatchString(persian.ToASCIIDigits(value)), MsgDate)
}

// NotEmptySelection requires at least one selected option.
func NotEmptySelection(values []string) Result {
	return result(len(nonEmpty(values)) > 0, MsgNotEmptySelection)
}

// ContractDuration passes when end is empty or start sorts strictly before end.
func ContractDuration(start, end string) Result {
	if strings.TrimSpace(end) == "" {
		return result(true, MsgContractDuration)
	}
	return result(persian.CompareDates(start, end) < 0, MsgContractDuration)
}

// RoleSelected requires at least one role.
func RoleSelected(roles []string) Result {
	return result(len(nonEmpty(roles)) > 0, MsgPersonnelRole)
}

// GenderSelected requires a checked gender option.
func GenderSelected(value string) Result {
	return result(strings.TrimSpace(value) != "", MsgGender)
}

// SkillDuplication fails when the same skill is selected in more than one row.
func SkillDuplication(skills []string) Result {
	seen := make(map[string]struct{}, len(skills))
	for _, skill := range nonEmpty(skills) {
		if _, dup := seen[skill]; dup {
			return result(false, MsgSkillDuplication)
		}
		seen[skill] = struct{}{}
	}
	return result(true, MsgSkillDuplication)
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
