// Package packet classifies and interprets Hekatron Genius radio frames.
//
// The gateway forwards every frame its radio receives as raw bytes. Frames
// have no header naming their type; a type is recognized by its exact length
// plus a few fixed byte values at known offsets. A Table lists those shapes
// in priority order and Classify returns the first one that matches.
//
// # Tables
//
// GeniusTable returns the built-in table:
//
//	Commissioning        37 bytes
//	Discovery Request    28 bytes
//	Discovery Response   32 bytes
//	Start Line Test      29 bytes, byte 28 = 0x06
//	Stop Line Test       29 bytes, byte 28 = 0x00
//	Start Alarm          36 bytes, byte 28 = 0x01
//	Stop Alarm           36 bytes, byte 30 = 0x01
//
// Custom tables are loaded from YAML with LoadTable:
//
//	version: 1
//	packets:
//	  - name: Start Alarm
//	    kind: alarm-start
//	    class: type-alarm-start
//	    length: 36
//	    identifiers:
//	      - offset: 28
//	        value: 0x01
//
// # Interpretation
//
// Interpret classifies a frame and decodes the fields shared by all Genius
// frames (origin and sender radio module, line id, hop count) plus the fields
// specific to commissioning and alarm frames. All multi-byte fields are
// 32-bit big-endian.
//
// # Gateway events
//
// RadioFrame and AlarmState are the payloads of the gateway's "packet" and
// "alarm" socket events. Bytes accepts every encoding the gateway and its
// web client use for raw frame data.
package packet
