/*
Package session manages interactive sessions.

A session owns a timestamped directory holding the chat transcript
(chat_log.jsonl), the memory log of the session (memory_store.jsonl) and, when
the session ends, a summary.json snapshot of memory.
*/
package session
