package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spst-logistics/spst-api/internal/domain"
)

func TestAttachmentSlotsFirstFreeSlot(t *testing.T) {
	var slots domain.AttachmentSlots
	assert.Equal(t, 0, slots.FirstFreeSlot())

	slots, err := slots.SetSlot(0, &domain.Attachment{URL: "https://files.spst.it/a.pdf"})
	require.NoError(t, err)
	assert.Equal(t, 1, slots.FirstFreeSlot())

	// A hole in the middle is reused before the tail.
	slots, err = slots.SetSlot(2, &domain.Attachment{URL: "https://files.spst.it/c.pdf"})
	require.NoError(t, err)
	assert.Equal(t, 1, slots.FirstFreeSlot())

	for i := 0; i < domain.MaxAttachmentSlots; i++ {
		slots, err = slots.SetSlot(i, &domain.Attachment{URL: "https://files.spst.it/x.pdf"})
		require.NoError(t, err)
	}
	assert.Equal(t, -1, slots.FirstFreeSlot())
}

func TestAttachmentSlotsSetSlotOutOfRange(t *testing.T) {
	var slots domain.AttachmentSlots

	_, err := slots.SetSlot(-1, &domain.Attachment{URL: "https://files.spst.it/a.pdf"})
	assert.Error(t, err)

	_, err = slots.SetSlot(domain.MaxAttachmentSlots, &domain.Attachment{URL: "https://files.spst.it/a.pdf"})
	assert.Error(t, err)
}

func TestAttachmentSlotsScanValue(t *testing.T) {
	slots := domain.AttachmentSlots{
		nil,
		{URL: "https://files.spst.it/fattura.pdf", FileName: "fattura.pdf"},
	}

	v, err := slots.Value()
	require.NoError(t, err)

	var restored domain.AttachmentSlots
	require.NoError(t, restored.Scan(v))
	require.Len(t, restored, 2)
	assert.Nil(t, restored[0])
	assert.Equal(t, "https://files.spst.it/fattura.pdf", restored[1].URL)
	assert.Equal(t, "fattura.pdf", restored[1].FileName)

	// NULL column restores the zero value.
	require.NoError(t, restored.Scan(nil))
	assert.Nil(t, restored)
}
