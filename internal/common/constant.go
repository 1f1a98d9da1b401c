// Package common contains shared constants and sentinel errors used across
// gophchat components.
package common

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "gophchat.session-token"

// ChatModelCookieName remembers the last chat model picked by the user.
const ChatModelCookieName = "chat-model"
