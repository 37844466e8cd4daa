// Package delivery writes cleaned transcriptions to the downstream consumer
// via a named pipe. A missing or unready reader is tolerated and logged
// rather than treated as fatal.
package delivery
