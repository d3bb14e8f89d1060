package domain

// ProcessType is a category of business process.
// Code is the external identifier used for lookups; ID is an opaque key.
type ProcessType struct {
	ID              string `json:"id" yaml:"id" mapstructure:"id"`
	Code            string `json:"code" yaml:"code" mapstructure:"code"`
	NameEN          string `json:"name_en" yaml:"name_en" mapstructure:"name_en"`
	NameRU          string `json:"name_ru" yaml:"name_ru" mapstructure:"name_ru"`
	AttributesTable string `json:"attributes_table,omitempty" yaml:"attributes_table,omitempty" mapstructure:"attributes_table"`

	// ParentID is empty for root types.
	ParentID string `json:"parent_id,omitempty" yaml:"parent_id,omitempty" mapstructure:"parent_id"`
}

// ProcessState is a status a process instance can occupy. It belongs to exactly one type.
type ProcessState struct {
	ID                  string `json:"id" yaml:"id" mapstructure:"id"`
	TypeID              string `json:"type_id" yaml:"type_id" mapstructure:"type_id"`
	Code                string `json:"code" yaml:"code" mapstructure:"code"`
	NameEN              string `json:"name_en" yaml:"name_en" mapstructure:"name_en"`
	NameRU              string `json:"name_ru" yaml:"name_ru" mapstructure:"name_ru"`
	ColorCode           string `json:"color_code,omitempty" yaml:"color_code,omitempty" mapstructure:"color_code"`
	AllowEdit           bool   `json:"allow_edit" yaml:"allow_edit" mapstructure:"allow_edit"`
	AllowDelete         bool   `json:"allow_delete" yaml:"allow_delete" mapstructure:"allow_delete"`
	Start               bool   `json:"start" yaml:"start" mapstructure:"start"`
	OperationListScript string `json:"operation_list_script,omitempty" yaml:"operation_list_script,omitempty" mapstructure:"operation_list_script"`
}

// ProcessOperation is a transition action of a type.
// AvailableStateIDs links it to the states of the same type it can be triggered from.
type ProcessOperation struct {
	ID                    string   `json:"id" yaml:"id" mapstructure:"id"`
	TypeID                string   `json:"type_id" yaml:"type_id" mapstructure:"type_id"`
	Code                  string   `json:"code" yaml:"code" mapstructure:"code"`
	NameEN                string   `json:"name_en" yaml:"name_en" mapstructure:"name_en"`
	NameRU                string   `json:"name_ru" yaml:"name_ru" mapstructure:"name_ru"`
	Icon                  string   `json:"icon,omitempty" yaml:"icon,omitempty" mapstructure:"icon"`
	ResourceURL           string   `json:"resource_url,omitempty" yaml:"resource_url,omitempty" mapstructure:"resource_url"`
	AvailabilityCondition string   `json:"availability_condition,omitempty" yaml:"availability_condition,omitempty" mapstructure:"availability_condition"`
	Cancel                bool     `json:"cancel" yaml:"cancel" mapstructure:"cancel"`
	MoveToStateScript     string   `json:"move_to_state_script,omitempty" yaml:"move_to_state_script,omitempty" mapstructure:"move_to_state_script"`
	Workflow              string   `json:"workflow,omitempty" yaml:"workflow,omitempty" mapstructure:"workflow"`
	Database              string   `json:"database,omitempty" yaml:"database,omitempty" mapstructure:"database"`
	AvailableStateIDs     []string `json:"available_state_ids,omitempty" yaml:"available_state_ids,omitempty" mapstructure:"available_state_ids"`
}

// Clone returns a copy that does not share the AvailableStateIDs backing array.
func (o ProcessOperation) Clone() ProcessOperation {
	if o.AvailableStateIDs != nil {
		o.AvailableStateIDs = append([]string(nil), o.AvailableStateIDs...)
	}
	return o
}

// AvailableFrom reports whether the operation can be triggered from the given state.
func (o ProcessOperation) AvailableFrom(stateID string) bool {
	for _, id := range o.AvailableStateIDs {
		if id == stateID {
			return true
		}
	}
	return false
}

// TypeKey is the buffering key of a type.
func TypeKey(t ProcessType) string { return t.Code }

// StateKey is the buffering key of a state.
func StateKey(s ProcessState) string { return s.ID }

// OperationKey is the buffering key of an operation.
func OperationKey(o ProcessOperation) string { return o.ID }

// Kind names an entity kind. It labels metrics, events and per-panel errors.
type Kind string

const (
	KindType      Kind = "type"
	KindState     Kind = "state"
	KindOperation Kind = "operation"
)
