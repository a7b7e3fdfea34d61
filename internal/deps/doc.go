// Package deps checks that the external binaries adtrim shells out to
// (ffmpeg, ffprobe and optionally uvx for WhisperX) are on PATH.
package deps
