// Package testutil contains helper builders used across tests to reduce
// boilerplate when constructing messages, conversation state and scripted
// model replies. They are not intended for production usage.
package testutil
