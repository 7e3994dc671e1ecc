package diagnostics

// Name rules.
const (
	CodeNameEmpty              = "NAM001"
	CodeNameTooLong            = "NAM002"
	CodeNameInvalidChars       = "NAM003"
	CodeNameContainsTag        = "NAM004"
	CodeNameHyphenEdge         = "NAM005"
	CodeNameConsecutiveHyphens = "NAM006"
	CodeNameReservedWord       = "NAM007"
	CodeNameDirectoryMismatch  = "NAM008"
)

// Description rules.
const (
	CodeDescriptionEmpty       = "DSC001"
	CodeDescriptionTooLong     = "DSC002"
	CodeDescriptionContainsTag = "DSC003"
)

// Optional field rules.
const (
	CodeCompatibilityTooLong = "CMP001"
	CodeUnknownField         = "FLD001"
)

// Directory structure rules.
const (
	CodeMissingReference    = "STR001"
	CodeReferenceTooDeep    = "STR002"
	CodePathTraversal       = "STR003"
	CodeScriptNotExecutable = "STR004"
	CodeNestingTooDeep      = "STR005"
	CodeSymlink             = "STR006"
	CodeScriptSyntax        = "STR007"
)

// AllCodes returns every diagnostic code defined by this package.
func AllCodes() []string {
	return []string{
		CodeNameEmpty,
		CodeNameTooLong,
		CodeNameInvalidChars,
		CodeNameContainsTag,
		CodeNameHyphenEdge,
		CodeNameConsecutiveHyphens,
		CodeNameReservedWord,
		CodeNameDirectoryMismatch,
		CodeDescriptionEmpty,
		CodeDescriptionTooLong,
		CodeDescriptionContainsTag,
		CodeCompatibilityTooLong,
		CodeUnknownField,
		CodeMissingReference,
		CodeReferenceTooDeep,
		CodePathTraversal,
		CodeScriptNotExecutable,
		CodeNestingTooDeep,
		CodeSymlink,
		CodeScriptSyntax,
	}
}
