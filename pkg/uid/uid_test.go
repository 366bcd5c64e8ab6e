package uid

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlayer_AcceptsBothForms(t *testing.T) {
	hyphenated, err := ParsePlayer("069a79f4-44e9-4726-a5be-fca90e38aaf5")
	require.NoError(t, err)

	simple, err := ParsePlayer("069A79F444E94726A5BEFCA90E38AAF5")
	require.NoError(t, err)

	assert.Equal(t, hyphenated, simple)
	assert.Equal(t, "069a79f444e94726a5befca90e38aaf5", Simple(simple))
}

func TestParsePlayer_RejectsGarbage(t *testing.T) {
	_, err := ParsePlayer("")
	assert.ErrorIs(t, err, ErrInvalidPlayer)

	_, err = ParsePlayer("not-a-uuid")
	assert.ErrorIs(t, err, ErrInvalidPlayer)
}

func TestNewSortable_IsVersion7(t *testing.T) {
	id, err := uuid.Parse(NewSortable())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
	assert.NotEqual(t, NewSortable(), NewSortable())
}
