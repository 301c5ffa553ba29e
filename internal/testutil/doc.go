// Package testutil contains helper builders used across tests to reduce
// boilerplate when constructing messages, model replies and conversation
// states. They are not intended for production usage.
package testutil
