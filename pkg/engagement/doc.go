// Package engagement keeps one live agent per conversation.
package engagement
