package a

import (
	jwt "github.com/golang-jwt/jwt/v4"
)

type localParser struct{}

func (localParser) ParseUnverified(s string) string {
	return s
}

func unverified(tokenString string) {
	parser := &jwt.Parser{}
	_, _, _ = parser.ParseUnverified(tokenString, nil) // want "avoid ParseUnverified: token signatures must be verified"
}

func verified(tokenString string) {
	parser := &jwt.Parser{}
	_, _ = parser.Parse(tokenString)
}

func unrelated(s string) string {
	return localParser{}.ParseUnverified(s)
}
