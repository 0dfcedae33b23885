package decode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearvote/rcvtab/internal/ir"
)

func TestCSVDecodeSimpleBallots(t *testing.T) {
	input := "ballot_id,multiplicity,rank_1,rank_2,rank_3\n" +
		"b1,1,A,B,C\n" +
		"b2,3,B,,A\n"

	source, err := CSVDecoder{}.Decode(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, source.Ballots, 2)

	assert.Equal(t, "b1", source.Ballots[0].ID)
	assert.Equal(t, uint64(1), source.Ballots[0].Multiplicity)
	assert.Equal(t, ir.RawSlotCandidate{Name: "A"}, source.Ballots[0].Slots[0])

	assert.Equal(t, uint64(3), source.Ballots[1].Multiplicity)
	assert.Equal(t, ir.RawSlotBlank{}, source.Ballots[1].Slots[1])
}

func TestCSVDecodeOvervoteAndWriteIn(t *testing.T) {
	input := "ballot_id,multiplicity,rank_1,rank_2\n" +
		"b1,1,\"overvote:A;B\",uwi:Some Write-in\n"

	source, err := CSVDecoder{}.Decode(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, source.Ballots, 1)

	assert.Equal(t, ir.RawSlotOvervote{Names: []string{"A", "B"}}, source.Ballots[0].Slots[0])
	assert.Equal(t, ir.RawSlotUndeclaredWriteIn{Name: "Some Write-in"}, source.Ballots[0].Slots[1])
}

func TestCSVDecodeRejectsMissingRankColumns(t *testing.T) {
	input := "ballot_id,multiplicity\nb1,1\n"
	_, err := CSVDecoder{}.Decode(strings.NewReader(input))
	require.Error(t, err)

	var ve *ir.VotingError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, ir.ErrCodeInputDecode, ve.Code)
}

func TestLookupKnownAndUnimplementedFormats(t *testing.T) {
	d, ok := Lookup("csv")
	require.True(t, ok)
	assert.IsType(t, CSVDecoder{}, d)

	d, ok = Lookup("dominion")
	require.True(t, ok)
	_, err := d.Decode(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrFormatNotImplemented)

	_, ok = Lookup("made_up_format")
	assert.False(t, ok)
}
