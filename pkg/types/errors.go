package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/ninja0404/token-launch-go/pkg/constants"
)

// Common errors
var (
	ErrNilRPC         = errors.New("rpc client is nil")
	ErrNilSigner      = errors.New("signer is nil")
	ErrNilFeePayer    = errors.New("fee payer is nil")
	ErrNoInstructions = errors.New("requires at least one instruction")

	ErrMintNotFound = errors.New("mint account not found")
	ErrNotAMint     = errors.New("account is not an spl token mint")

	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrTransactionFailed   = errors.New("transaction failed")
	ErrSimulationFailed    = errors.New("simulation failed")
	ErrConfirmationTimeout = errors.New("confirmation timeout")
)

// RPCError wraps RPC failures with operation context.
type RPCError struct {
	Op  string
	Err error
}

func (e RPCError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e RPCError) Unwrap() error {
	return e.Err
}

// ValidationError represents input validation failures.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) ValidationError {
	return ValidationError{Field: field, Message: message}
}

// ProgramError represents an on-chain program failure.
type ProgramError struct {
	Program     string
	Instruction int
	Code        int
	Message     string
	Logs        []string
}

func (e *ProgramError) Error() string {
	return fmt.Sprintf("program %s error [%d] in instruction %d: %s", e.Program, e.Code, e.Instruction, e.Message)
}

// Is lets errors.Is match ErrTransactionFailed.
func (e *ProgramError) Is(target error) bool {
	return target == ErrTransactionFailed
}

// SimulationError contains simulation failure details that could not be
// mapped to a program error.
type SimulationError struct {
	Err  interface{}
	Logs []string
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("simulation failed: %v", e.Err)
}

// Is lets errors.Is match ErrSimulationFailed.
func (e *SimulationError) Is(target error) bool {
	return target == ErrSimulationFailed
}

var tokenErrors = map[int]string{
	0:  "lamport balance below rent-exempt threshold",
	1:  "insufficient funds",
	2:  "invalid mint",
	3:  "account not associated with this mint",
	4:  "owner does not match",
	5:  "fixed supply",
	6:  "already in use",
	7:  "invalid number of provided signers",
	8:  "invalid number of required signers",
	9:  "state is uninitialized",
	10: "instruction does not support native tokens",
	11: "non-native account can only be closed if its balance is zero",
	12: "invalid instruction",
	13: "state is invalid for requested operation",
	14: "operation overflowed",
	15: "account does not support specified authority type",
	16: "this token mint cannot freeze accounts",
	17: "account is frozen",
	18: "the provided decimals value different from the mint decimals",
	19: "instruction does not support non-native tokens",
}

var metadataErrors = map[int]string{
	0:  "failed to unpack instruction data",
	1:  "failed to pack instruction data",
	2:  "lamport balance below rent-exempt threshold",
	3:  "already initialized",
	4:  "uninitialized",
	5:  "metadata's key must match seed of ['metadata', program id, mint]",
	6:  "edition's key must match seed of ['metadata', program id, name, 'edition']",
	7:  "update authority given does not match",
	8:  "update authority needs to be signer to update metadata",
	9:  "you must be the mint authority and signer on this transaction",
	10: "mint authority provided does not match the authority on the mint",
	11: "name too long",
	12: "symbol too long",
	13: "uri too long",
	14: "update authority must be equivalent to the metadata's authority and also signer of this transaction",
	15: "mint given does not match mint on metadata",
}

var systemErrors = map[int]string{
	0: "an account with the same address already exists",
	1: "account does not have enough lamports",
	2: "cannot assign account to this program id",
	3: "cannot allocate account data of this length",
}

// ParseSimulationError extracts error details from a simulation or status
// error value. programs lists the program id of each instruction in the
// transaction so custom codes can be attributed to the right program.
func ParseSimulationError(errVal interface{}, logs []string, programs []solana.PublicKey) error {
	if errVal == nil {
		return nil
	}

	errMap, ok := errVal.(map[string]interface{})
	if !ok {
		return &SimulationError{Err: errVal, Logs: logs}
	}
	instErr, ok := errMap["InstructionError"].([]interface{})
	if !ok || len(instErr) < 2 {
		return &SimulationError{Err: errVal, Logs: logs}
	}
	idx := -1
	if f, ok := instErr[0].(float64); ok {
		idx = int(f)
	}
	var program solana.PublicKey
	if idx >= 0 && idx < len(programs) {
		program = programs[idx]
	}

	custom, ok := instErr[1].(map[string]interface{})
	if !ok {
		// Builtin errors arrive as plain strings, e.g. "InvalidAccountData".
		if name, ok := instErr[1].(string); ok {
			return &ProgramError{
				Program:     programName(program),
				Instruction: idx,
				Code:        -1,
				Message:     toReadableError(name),
				Logs:        logs,
			}
		}
		return &SimulationError{Err: errVal, Logs: logs}
	}
	codeNum, ok := custom["Custom"].(float64)
	if !ok {
		return &SimulationError{Err: errVal, Logs: logs}
	}
	code := int(codeNum)
	return &ProgramError{
		Program:     programName(program),
		Instruction: idx,
		Code:        code,
		Message:     ErrorMessage(program, code),
		Logs:        logs,
	}
}

// ErrorMessage maps a custom error code of a known program to text.
func ErrorMessage(program solana.PublicKey, code int) string {
	var table map[int]string
	switch {
	case program.Equals(constants.TokenProgramID):
		table = tokenErrors
	case program.Equals(constants.MetadataProgramID):
		table = metadataErrors
	case program.Equals(constants.SystemProgramID):
		table = systemErrors
	case program.Equals(constants.AssociatedTokenProgramID):
		if code == 0 {
			return "associated token account owner does not match address derivation"
		}
	}
	if msg, ok := table[code]; ok {
		return msg
	}
	return fmt.Sprintf("error code %d", code)
}

func programName(program solana.PublicKey) string {
	switch {
	case program.IsZero():
		return "unknown"
	case program.Equals(constants.TokenProgramID):
		return "spl_token"
	case program.Equals(constants.MetadataProgramID):
		return "token_metadata"
	case program.Equals(constants.SystemProgramID):
		return "system"
	case program.Equals(constants.AssociatedTokenProgramID):
		return "associated_token"
	case program.Equals(constants.ComputeBudgetProgramID):
		return "compute_budget"
	default:
		return program.String()
	}
}

// toReadableError converts CamelCase error name to readable format.
func toReadableError(name string) string {
	if name == "" {
		return "unknown error"
	}
	var b strings.Builder
	for i, c := range name {
		if i > 0 && c >= 'A' && c <= 'Z' {
			b.WriteByte(' ')
		}
		b.WriteRune(c)
	}
	return strings.ToLower(b.String())
}

// IsRetryableError reports whether resubmitting could plausibly help.
// Program errors are deterministic and never retryable.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var progErr *ProgramError
	if errors.As(err, &progErr) {
		return false
	}
	var valErr ValidationError
	return !errors.As(err, &valErr)
}
