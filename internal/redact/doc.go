// Package redact masks sensitive values in a settings mapping before it is
// shown to anyone.
//
// A value is sensitive when its key contains PASSWORD, SECRET, TOKEN or KEY
// as an underscore-delimited word (SECRET_KEY, API_TOKEN, PASSWORD). String
// values that parse as URLs carrying a password, such as DATABASE_URL, keep
// their shape with only the password masked.
package redact
