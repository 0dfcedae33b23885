package decode

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/clearvote/rcvtab/internal/ir"
)

// CSVDecoder reads the generic ranked-choice CSV layout: a header row
// (ballot_id, multiplicity, rank_1..rank_N), one row per ballot. A rank
// cell holds a candidate name, is empty for an undervote, holds
// "overvote:A;B" for an overvote naming the tied candidates, or holds
// "uwi:<label>" for an explicit undeclared write-in.
type CSVDecoder struct{}

const (
	csvColBallotID     = "ballot_id"
	csvColMultiplicity = "multiplicity"
	csvRankColPrefix   = "rank_"
	csvOvervotePrefix  = "overvote:"
	csvUWIPrefix       = "uwi:"
)

func (CSVDecoder) Decode(r io.Reader) (BallotSource, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return BallotSource{}, nil
		}
		return BallotSource{}, ir.NewInputDecodeError(fmt.Sprintf("csv: reading header: %v", err))
	}

	idCol, multCol, rankCols := -1, -1, []int{}
	for i, name := range header {
		switch {
		case name == csvColBallotID:
			idCol = i
		case name == csvColMultiplicity:
			multCol = i
		case strings.HasPrefix(name, csvRankColPrefix):
			rankCols = append(rankCols, i)
		}
	}
	if len(rankCols) == 0 {
		return BallotSource{}, ir.NewInputDecodeError("csv: no rank_N columns found in header")
	}

	var source BallotSource
	rowNum := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			source.Warnings = append(source.Warnings, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}

		ballot := ir.RawBallot{Multiplicity: 1}
		if idCol >= 0 && idCol < len(row) {
			ballot.ID = row[idCol]
		}
		if multCol >= 0 && multCol < len(row) {
			if n, err := strconv.ParseUint(row[multCol], 10, 64); err == nil && n > 0 {
				ballot.Multiplicity = n
			}
		}

		for _, col := range rankCols {
			if col >= len(row) {
				ballot.Slots = append(ballot.Slots, ir.RawSlotBlank{})
				continue
			}
			ballot.Slots = append(ballot.Slots, parseCell(row[col]))
		}

		source.Ballots = append(source.Ballots, ballot)
	}

	return source, nil
}

func parseCell(cell string) ir.RawSlot {
	cell = strings.TrimSpace(cell)
	switch {
	case cell == "":
		return ir.RawSlotBlank{}
	case strings.HasPrefix(cell, csvOvervotePrefix):
		names := strings.Split(strings.TrimPrefix(cell, csvOvervotePrefix), ";")
		return ir.RawSlotOvervote{Names: names}
	case strings.HasPrefix(cell, csvUWIPrefix):
		return ir.RawSlotUndeclaredWriteIn{Name: strings.TrimPrefix(cell, csvUWIPrefix)}
	default:
		return ir.RawSlotCandidate{Name: cell}
	}
}
