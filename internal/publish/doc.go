// Package publish posts generated articles to blogging backends.
//
// WordPress is addressed through its REST API with application-password Basic
// auth; Ghost through its Admin API with a short-lived HS256 token. Multi fans
// a post out to every configured backend and succeeds when at least one does.
package publish
