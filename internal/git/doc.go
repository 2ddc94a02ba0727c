// Package git performs the go-git operations docbinder needs: ref resolution
// and snapshot checkout for the git remote provider, plus pull and tag on local
// working copies.
package git
