package errors

// Config errors

func ConfigNotFound(path string) *RstprepError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ConfigInvalid(field, reason string) *RstprepError {
	return New(CategoryConfig, SeverityFatal, "invalid configuration").
		WithContext("field", field).
		WithContext("reason", reason)
}

func ProjectRootError(cause error) *RstprepError {
	return Wrap(cause, CategoryConfig, SeverityFatal, "cannot determine project root")
}

// Document errors

func RewriteFailed(path string, cause error) *RstprepError {
	return Wrap(cause, CategoryRewrite, SeverityFatal, "rewrite failed").
		WithContext("path", path)
}

func IncludeMissing(path string, cause error) *RstprepError {
	return Wrap(cause, CategoryFileSystem, SeverityFatal, "include target not found").
		WithContext("path", path)
}

func DocumentTooShort(path string, lines int) *RstprepError {
	return New(CategoryValidation, SeverityFatal, "document too short to de-number").
		WithContext("path", path).
		WithContext("lines", lines)
}

// Build errors

func CombineFailed(document string, cause error) *RstprepError {
	return Wrap(cause, CategoryBuild, SeverityFatal, "combining build output failed").
		WithContext("document", document)
}

func ExternalCommandFailed(command string, exitCode int) *RstprepError {
	return New(CategoryExternal, SeverityFatal, "external command exited with non-zero status").
		WithContext("command", command).
		WithContext("exit_code", exitCode)
}

func ExternalCommandStart(command string, cause error) *RstprepError {
	return Wrap(cause, CategoryExternal, SeverityFatal, "external command could not be started").
		WithContext("command", command)
}

// Internal errors

func InternalError(message string, cause error) *RstprepError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
