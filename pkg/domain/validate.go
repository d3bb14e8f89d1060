package domain

import (
	"strings"

	"github.com/asaskevich/govalidator"
)

type fieldCheck struct {
	field string
	value string
}

func required(kind Kind, key string, checks ...fieldCheck) []error {
	var errs []error
	for _, c := range checks {
		if strings.TrimSpace(c.value) == "" {
			errs = append(errs, &ValidationError{Kind: kind, Key: key, Field: c.field, Reason: "required"})
		}
	}
	return errs
}

func aggregate(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return &AggregateError{Errors: errs}
}

// ValidateType checks the fields a type needs before it can be saved.
func ValidateType(t ProcessType) error {
	errs := required(KindType, t.Code,
		fieldCheck{"code", t.Code},
		fieldCheck{"name_en", t.NameEN},
		fieldCheck{"name_ru", t.NameRU},
	)
	if t.ParentID != "" && t.ParentID == t.ID {
		errs = append(errs, &ValidationError{Kind: KindType, Key: t.Code, Field: "parent_id", Reason: "cannot reference itself"})
	}
	return aggregate(errs)
}

// ValidateState checks the fields a state needs before it can be saved.
func ValidateState(s ProcessState) error {
	errs := required(KindState, s.ID,
		fieldCheck{"type_id", s.TypeID},
		fieldCheck{"code", s.Code},
		fieldCheck{"name_en", s.NameEN},
		fieldCheck{"name_ru", s.NameRU},
	)
	if s.ColorCode != "" && !govalidator.IsHexcolor(s.ColorCode) {
		errs = append(errs, &ValidationError{Kind: KindState, Key: s.ID, Field: "color_code", Reason: "must be a hex colour"})
	}
	return aggregate(errs)
}

// ValidateOperation checks the fields an operation needs before it can be saved.
func ValidateOperation(o ProcessOperation) error {
	errs := required(KindOperation, o.ID,
		fieldCheck{"type_id", o.TypeID},
		fieldCheck{"code", o.Code},
		fieldCheck{"name_en", o.NameEN},
		fieldCheck{"name_ru", o.NameRU},
	)
	if o.ResourceURL != "" && !strings.HasPrefix(o.ResourceURL, "/") && !govalidator.IsURL(o.ResourceURL) {
		errs = append(errs, &ValidationError{Kind: KindOperation, Key: o.ID, Field: "resource_url", Reason: "must be a URL or an absolute path"})
	}
	for _, id := range o.AvailableStateIDs {
		if strings.TrimSpace(id) == "" {
			errs = append(errs, &ValidationError{Kind: KindOperation, Key: o.ID, Field: "available_state_ids", Reason: "contains an empty state id"})
			break
		}
	}
	return aggregate(errs)
}

// Join merges several validation results into one AggregateError.
func Join(results ...error) error {
	var errs []error
	for _, err := range results {
		if err == nil {
			continue
		}
		if inner := ValidationErrors(err); inner != nil {
			errs = append(errs, inner...)
			continue
		}
		errs = append(errs, err)
	}
	return aggregate(errs)
}
