// Package telegram implements the Telegram Bot API channel for gemgram.
//
// It bridges Telegram chats and the platform-agnostic message model:
//
//   - Inbound text messages and bot commands (entity-based, UTF-16 offsets)
//   - Outbound replies with automatic chunking via channel.SplitMessage
//   - Two delivery modes: long-polling (default) and webhook
//
// Non-text updates (photos, stickers, voice notes) are skipped: the relay
// is text-only. The module registers itself as "channel.telegram" via
// init() and implements the full module lifecycle: Configure → Provision →
// Validate → Start → Stop.
//
// No external Telegram library is used: the module communicates with the
// Bot API via raw net/http + encoding/json.
package telegram
