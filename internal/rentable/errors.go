package rentable

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

var (
	ErrAccountNotFound      = errors.New("rentable token account not found")
	ErrInvalidDiscriminator = errors.New("invalid discriminator")
	ErrWrongOwner           = errors.New("account is not owned by the program")
)

// Custom error codes start at 6000 in Anchor programs.
const ErrorCodeNoSigner uint32 = 6000

// ErrNoSigner matches any *ProgramError with the NoSigner code via errors.Is.
var ErrNoSigner = &ProgramError{Code: ErrorCodeNoSigner, Name: "NoSigner", Msg: "No signer was found for the transaction"}

var programErrors = map[uint32]*ProgramError{
	ErrorCodeNoSigner: ErrNoSigner,
}

// ProgramError is an error raised by the program (or the Anchor framework on
// its behalf) while executing an instruction.
type ProgramError struct {
	Code uint32
	Name string
	Msg  string
	// Err is the RPC-level error the program error was extracted from.
	Err error
}

func (e *ProgramError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("program error %d", e.Code)
	}
	return fmt.Sprintf("program error %d (%s): %s", e.Code, e.Name, e.Msg)
}

func (e *ProgramError) Unwrap() error { return e.Err }

func (e *ProgramError) Is(target error) bool {
	t, ok := target.(*ProgramError)
	return ok && t.Code == e.Code
}

var anchorErrorLog = regexp.MustCompile(`Error Code: (\w+)\. Error Number: (\d+)\. Error Message: (.+?)\.?$`)

// ParseProgramError finds the first Anchor error line in transaction logs.
func ParseProgramError(logs []string) (*ProgramError, bool) {
	for _, l := range logs {
		m := anchorErrorLog.FindStringSubmatch(l)
		if m == nil {
			continue
		}
		code, err := strconv.ParseUint(m[2], 10, 32)
		if err != nil {
			continue
		}
		return &ProgramError{Code: uint32(code), Name: m[1], Msg: m[3]}, true
	}
	return nil, false
}

// CustomErrorCode extracts N from an RPC transaction error of the shape
// {"InstructionError":[idx,{"Custom":N}]}.
func CustomErrorCode(txErr any) (uint32, bool) {
	m, ok := txErr.(map[string]any)
	if !ok {
		return 0, false
	}
	ie, ok := m["InstructionError"].([]any)
	if !ok || len(ie) != 2 {
		return 0, false
	}
	custom, ok := ie[1].(map[string]any)
	if !ok {
		return 0, false
	}
	switch v := custom["Custom"].(type) {
	case float64:
		return uint32(v), true
	case json.Number:
		n, err := v.Int64()
		return uint32(n), err == nil
	case int:
		return uint32(v), true
	case uint32:
		return v, true
	}
	return 0, false
}

func programErrorFromCode(code uint32) *ProgramError {
	if known, ok := programErrors[code]; ok {
		e := *known
		return &e
	}
	return &ProgramError{Code: code}
}
