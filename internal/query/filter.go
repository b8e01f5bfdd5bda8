package query

import (
	"errors"
	"strings"

	"github.com/amirbrooks/taskline/internal/task"
)

var (
	// ErrUnrecognizedInstruction: the line matches no known instruction.
	ErrUnrecognizedInstruction = errors.New("unrecognized instruction")
	// ErrUnparseableDate: the instruction matched but its date did not resolve.
	ErrUnparseableDate = errors.New("unparseable date")
)

// InstructionError describes why an instruction produced no filter, sorter
// or grouper. It satisfies errors.Is for its Kind.
type InstructionError struct {
	Instruction string
	Message     string
	Kind        error
}

func (e *InstructionError) Error() string {
	if e == nil {
		return "invalid instruction"
	}
	if e.Instruction == "" {
		return e.Message
	}
	return e.Message + ": " + e.Instruction
}

func (e *InstructionError) Is(target error) bool {
	return e != nil && target == e.Kind
}

func unrecognized(line, message string) error {
	return &InstructionError{Instruction: line, Message: message, Kind: ErrUnrecognizedInstruction}
}

// Filter is a predicate built from one instruction line.
type Filter struct {
	Instruction string
	Explanation string
	match       func(*task.Task) bool
}

func newFilter(instruction string, match func(*task.Task) bool, explanation string) *Filter {
	return &Filter{Instruction: instruction, Explanation: explanation, match: match}
}

func (f *Filter) Matches(t *task.Task) bool {
	return f.match(t)
}

// FilterFactory builds filters for the instructions of one field.
type FilterFactory interface {
	CanCreateFilterForLine(line string) bool
	CreateFilter(line string) (*Filter, error)
}

// filterInstructions holds fixed-text instructions such as "has due date".
type filterInstructions []filterInstruction

type filterInstruction struct {
	text  string
	match func(*task.Task) bool
}

func (fi *filterInstructions) add(text string, match func(*task.Task) bool) {
	*fi = append(*fi, filterInstruction{text: text, match: match})
}

func (fi filterInstructions) lookup(line string) (filterInstruction, bool) {
	line = normalizeLine(line)
	for _, in := range fi {
		if strings.EqualFold(in.text, line) {
			return in, true
		}
	}
	return filterInstruction{}, false
}

func (fi filterInstructions) CanCreateFilterForLine(line string) bool {
	_, ok := fi.lookup(line)
	return ok
}

func (fi filterInstructions) CreateFilter(line string) (*Filter, error) {
	in, ok := fi.lookup(line)
	if !ok {
		return nil, unrecognized(line, "do not understand query")
	}
	return newFilter(line, in.match, in.text), nil
}

func normalizeLine(line string) string {
	return strings.Join(strings.Fields(line), " ")
}
