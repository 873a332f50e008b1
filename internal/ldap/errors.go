package ldap

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// ErrorKind classifies failures by what the caller can do about them.
type ErrorKind string

const (
	KindValidation  ErrorKind = "validation"
	KindNotFound    ErrorKind = "not_found"
	KindDuplicate   ErrorKind = "duplicate"
	KindConstraint  ErrorKind = "constraint_violation"
	KindProtocol    ErrorKind = "protocol"
	KindConsistency ErrorKind = "consistency"
)

// ErrorCategory represents different categories of LDAP errors.
type ErrorCategory string

const (
	ErrorCategoryConnection     ErrorCategory = "connection"
	ErrorCategoryAuthentication ErrorCategory = "authentication"
	ErrorCategoryPermission     ErrorCategory = "permission"
	ErrorCategoryNotFound       ErrorCategory = "not_found"
	ErrorCategoryConflict       ErrorCategory = "conflict"
	ErrorCategoryValidation     ErrorCategory = "validation"
	ErrorCategoryServer         ErrorCategory = "server"
	ErrorCategoryUnknown        ErrorCategory = "unknown"
)

var (
	// ErrAmbiguousEntry is returned when a base-object lookup yields more than one entry.
	ErrAmbiguousEntry = errors.New("more than one entry found at a unique path")
	// ErrSessionClosed is returned when a released session is used.
	ErrSessionClosed = errors.New("session is closed")
	// ErrNotBound is returned when an entity without a path is written.
	ErrNotBound = errors.New("entity has no path")
	// ErrAlreadyPersisted is returned when inserting an entity that already exists remotely.
	ErrAlreadyPersisted = errors.New("entity is already persisted")
)

// LDAPError provides enhanced error information for directory operations.
type LDAPError struct {
	Operation string        // The operation that failed
	Kind      ErrorKind     // Caller-facing classification
	Category  ErrorCategory // Classification by LDAP result code
	LDAPCode  uint16        // LDAP result code
	Message   string        // Human-readable message
	ServerMsg string        // Server-provided message
	DN        string        // DN involved in the operation (if applicable)
	Retryable bool          // Whether the error is retryable
	Cause     error         // Underlying error
}

func (e *LDAPError) Error() string {
	var parts []string

	if e.LDAPCode > 0 {
		parts = append(parts, fmt.Sprintf("LDAP %s failed (code %d)", e.Operation, e.LDAPCode))
	} else {
		parts = append(parts, fmt.Sprintf("LDAP %s failed", e.Operation))
	}

	if e.Message != "" {
		parts = append(parts, e.Message)
	}

	if e.ServerMsg != "" && e.ServerMsg != e.Message {
		parts = append(parts, fmt.Sprintf("server: %s", e.ServerMsg))
	}

	if e.DN != "" {
		parts = append(parts, fmt.Sprintf("DN: %s", e.DN))
	}

	return strings.Join(parts, " - ")
}

func (e *LDAPError) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether repeating the operation may succeed.
func (e *LDAPError) IsRetryable() bool {
	return e.Retryable
}

// NewLDAPError classifies err, which usually comes from go-ldap.
func NewLDAPError(operation string, err error) *LDAPError {
	if err == nil {
		return nil
	}

	var resultErr *ldap.Error
	if errors.As(err, &resultErr) {
		class := classify(resultErr.ResultCode)
		ldapErr := &LDAPError{
			Operation: operation,
			Kind:      class.kind,
			Category:  class.category,
			LDAPCode:  resultErr.ResultCode,
			Message:   ldap.LDAPResultCodeMap[resultErr.ResultCode],
			Retryable: class.retryable,
			Cause:     err,
		}
		if resultErr.Err != nil {
			ldapErr.ServerMsg = resultErr.Err.Error()
		}
		return ldapErr
	}

	category, retryable := classifyText(err)
	return &LDAPError{
		Operation: operation,
		Kind:      KindProtocol,
		Category:  category,
		Message:   err.Error(),
		Retryable: retryable,
		Cause:     err,
	}
}

// newKindError builds an error that did not originate from the server.
func newKindError(operation string, kind ErrorKind, dn, message string, cause error) *LDAPError {
	category := ErrorCategoryUnknown
	switch kind {
	case KindNotFound:
		category = ErrorCategoryNotFound
	case KindDuplicate, KindConsistency:
		category = ErrorCategoryConflict
	case KindValidation, KindConstraint:
		category = ErrorCategoryValidation
	}
	return &LDAPError{
		Operation: operation,
		Kind:      kind,
		Category:  category,
		Message:   message,
		DN:        dn,
		Cause:     cause,
	}
}

type codeClass struct {
	kind      ErrorKind
	category  ErrorCategory
	retryable bool
}

// resultCodes classifies the result codes this package distinguishes.
// Anything else is a non-retryable protocol error of unknown category.
var resultCodes = map[uint16]codeClass{
	ldap.LDAPResultNoSuchObject:           {KindNotFound, ErrorCategoryNotFound, false},
	ldap.LDAPResultNoSuchAttribute:        {KindProtocol, ErrorCategoryNotFound, false},
	ldap.LDAPResultUndefinedAttributeType: {KindProtocol, ErrorCategoryNotFound, false},

	ldap.LDAPResultEntryAlreadyExists:          {KindDuplicate, ErrorCategoryConflict, false},
	ldap.LDAPResultAttributeOrValueExists:      {KindDuplicate, ErrorCategoryConflict, false},
	ldap.LDAPResultObjectClassViolation:        {KindConstraint, ErrorCategoryConflict, false},
	ldap.LDAPResultNotAllowedOnNonLeaf:         {KindConstraint, ErrorCategoryConflict, false},
	ldap.LDAPResultNotAllowedOnRDN:             {KindConstraint, ErrorCategoryValidation, false},
	ldap.LDAPResultConstraintViolation:         {KindConstraint, ErrorCategoryValidation, false},
	ldap.LDAPResultInvalidDNSyntax:             {KindValidation, ErrorCategoryValidation, false},
	ldap.LDAPResultInvalidAttributeSyntax:      {KindValidation, ErrorCategoryValidation, false},
	ldap.LDAPResultNamingViolation:             {KindValidation, ErrorCategoryValidation, false},
	ldap.LDAPResultInvalidCredentials:          {KindProtocol, ErrorCategoryAuthentication, false},
	ldap.LDAPResultInappropriateAuthentication: {KindProtocol, ErrorCategoryAuthentication, false},
	ldap.LDAPResultStrongAuthRequired:          {KindProtocol, ErrorCategoryAuthentication, false},
	ldap.LDAPResultInsufficientAccessRights:    {KindProtocol, ErrorCategoryPermission, false},
	ldap.LDAPResultUnwillingToPerform:          {KindProtocol, ErrorCategoryPermission, false},

	ldap.LDAPResultBusy:               {KindProtocol, ErrorCategoryServer, true},
	ldap.LDAPResultUnavailable:        {KindProtocol, ErrorCategoryServer, true},
	ldap.LDAPResultServerDown:         {KindProtocol, ErrorCategoryServer, true},
	ldap.LDAPResultTimeLimitExceeded:  {KindProtocol, ErrorCategoryServer, true},
	ldap.LDAPResultAdminLimitExceeded: {KindProtocol, ErrorCategoryServer, false},
	ldap.LDAPResultConnectError:       {KindProtocol, ErrorCategoryConnection, true},
	ldap.ErrorNetwork:                 {KindProtocol, ErrorCategoryConnection, true},
	ldap.LDAPResultProtocolError:      {KindProtocol, ErrorCategoryConnection, false},
}

func classify(code uint16) codeClass {
	if class, ok := resultCodes[code]; ok {
		return class
	}
	return codeClass{kind: KindProtocol, category: ErrorCategoryUnknown}
}

var (
	connectionWords     = []string{"connection", "network", "timeout", "broken pipe"}
	authenticationWords = []string{"authentication", "credentials"}
	permissionWords     = []string{"permission", "denied"}
	transientWords      = []string{"connection refused", "connection reset", "timeout", "broken pipe", "temporary failure"}
)

// classifyText guesses the category of an error that carries no result
// code, such as a dial failure, from its message.
func classifyText(err error) (ErrorCategory, bool) {
	msg := strings.ToLower(err.Error())
	containsAny := func(words []string) bool {
		return slices.ContainsFunc(words, func(w string) bool { return strings.Contains(msg, w) })
	}

	category := ErrorCategoryUnknown
	switch {
	case containsAny(connectionWords):
		category = ErrorCategoryConnection
	case containsAny(authenticationWords):
		category = ErrorCategoryAuthentication
	case containsAny(permissionWords):
		category = ErrorCategoryPermission
	}
	return category, containsAny(transientWords)
}

// WrapError wraps an error with operation context.
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}

	var ldapErr *LDAPError
	if errors.As(err, &ldapErr) {
		if ldapErr.Operation == "" {
			ldapErr.Operation = operation
		}
		return err
	}

	return NewLDAPError(operation, err)
}

// IsRetryableError checks if an error is retryable.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var ldapErr *LDAPError
	if errors.As(err, &ldapErr) {
		return ldapErr.IsRetryable()
	}

	var resultErr *ldap.Error
	if errors.As(err, &resultErr) {
		return classify(resultErr.ResultCode).retryable
	}

	_, retryable := classifyText(err)
	return retryable
}

// GetErrorKind returns the caller-facing kind of an error.
func GetErrorKind(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return KindValidation
	}

	var ldapErr *LDAPError
	if errors.As(err, &ldapErr) {
		return ldapErr.Kind
	}

	var resultErr *ldap.Error
	if errors.As(err, &resultErr) {
		return classify(resultErr.ResultCode).kind
	}

	return KindProtocol
}

// GetErrorCategory returns the category of an error.
func GetErrorCategory(err error) ErrorCategory {
	if err == nil {
		return ErrorCategoryUnknown
	}

	var ldapErr *LDAPError
	if errors.As(err, &ldapErr) {
		return ldapErr.Category
	}

	var resultErr *ldap.Error
	if errors.As(err, &resultErr) {
		return classify(resultErr.ResultCode).category
	}

	category, _ := classifyText(err)
	return category
}

// IsNotFoundError checks if an error indicates a "not found" condition.
func IsNotFoundError(err error) bool {
	return GetErrorKind(err) == KindNotFound
}

// IsDuplicateError checks if an error indicates a uniqueness violation.
func IsDuplicateError(err error) bool {
	return GetErrorKind(err) == KindDuplicate
}

// IsConstraintError checks if an error indicates a relational invariant violation.
func IsConstraintError(err error) bool {
	return GetErrorKind(err) == KindConstraint
}

// IsAuthenticationError checks if an error indicates an authentication problem.
func IsAuthenticationError(err error) bool {
	return GetErrorCategory(err) == ErrorCategoryAuthentication
}

// FieldError is a single validation complaint about one field.
type FieldError struct {
	Field   string
	Kind    ErrorKind
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationError aggregates the field errors of an entity.
type ValidationError struct {
	DN     string
	Fields []*FieldError
}

func (e *ValidationError) Error() string {
	byField := make(map[string][]string)
	for _, fe := range e.Fields {
		byField[fe.Field] = append(byField[fe.Field], fe.Message)
	}
	names := make([]string, 0, len(byField))
	for name := range byField {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(byField[name], "; ")))
	}

	msg := fmt.Sprintf("%d validation error(s)", len(e.Fields))
	if e.DN != "" {
		msg += " for " + e.DN
	}
	return msg + ": " + strings.Join(parts, ", ")
}

// HasKind reports whether any field error has the given kind.
func (e *ValidationError) HasKind(kind ErrorKind) bool {
	for _, fe := range e.Fields {
		if fe.Kind == kind {
			return true
		}
	}
	return false
}
