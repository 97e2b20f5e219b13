package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// MaxAttachmentSlots is the number of document slots per shipment
const MaxAttachmentSlots = 8

// Attachment is one stored document reference on a shipment
type Attachment struct {
	URL      string `json:"url"`
	FileName string `json:"file_name,omitempty"`
}

// AttachmentSlots is the fixed-size attachment list persisted as jsonb.
// Unused slots are nil.
type AttachmentSlots []*Attachment

// Value implements driver.Valuer
func (a AttachmentSlots) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal attachments: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (a *AttachmentSlots) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for attachment slots")
	}
	return json.Unmarshal(data, a)
}

// FirstFreeSlot returns the index of the first unused slot, or -1 when full
func (a AttachmentSlots) FirstFreeSlot() int {
	for i := 0; i < MaxAttachmentSlots; i++ {
		if i >= len(a) || a[i] == nil {
			return i
		}
	}
	return -1
}

// SetSlot places an attachment at the given slot, growing the list as needed
func (a AttachmentSlots) SetSlot(idx int, att *Attachment) (AttachmentSlots, error) {
	if idx < 0 || idx >= MaxAttachmentSlots {
		return a, fmt.Errorf("attachment slot %d out of range", idx)
	}
	out := a
	for len(out) <= idx {
		out = append(out, nil)
	}
	out[idx] = att
	return out, nil
}
