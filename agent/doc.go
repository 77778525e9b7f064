// Package agent implements the chat executor collaborator for the workflow
// engine: a persona (role, goal, backstory) rendered into a system prompt
// over a minimal chat-completion Provider interface, plus the Factory that
// bridges inline workflow agent configurations to live agents.
package agent
