// Package utils provides input validation helpers for the HTTP surface.
//
// Validation:
//   - Entity id format and length validation
//   - Bonus target and ioctl argument key validation
//   - JSON size and depth validation for property payloads
//
// Features:
//   - Consistent error messages
//   - Configurable limits
//
// Example Usage:
//
//	if err := utils.ValidateEntityID(id); err != nil { ... }
//
//	validator := utils.NewJSONSizeValidator(1024 * 1024)
//	err := validator.ValidateJSON(jsonData)
package utils
