// Package util contains helper functions used around the code.
package util

import "net/url"

// Mask replaces secrets in logged values.
const Mask = "xxxxx"

// In returns true if s is found in ss, false otherwise.
func In[T comparable](ss []T, s T) bool {
	for _, v := range ss {
		if s == v {
			return true
		}
	}

	return false
}

// Redact masks the password of a connection url. Connection strings that are not urls, like postgres key/value ones,
// are masked completely.
func Redact(conn string) string {
	if conn == "" {
		return conn
	}

	u, err := url.Parse(conn)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Mask
	}

	return u.Redacted()
}
