// Package audio edits podcast episodes with ffmpeg and inspects them with
// ffprobe.
//
// Long episodes are split into "part_<i>_<name>" chunks small enough for the
// transcription upload limit. Each chunk is rendered by keeping its content
// windows verbatim and replacing every ad window with a short notification
// clip, then the chunks are joined back over the original file.
//
// Render refuses to overwrite a file that is not a split part unless an
// explicit output path is given.
package audio
