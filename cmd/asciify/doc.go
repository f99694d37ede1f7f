// Command asciify converts images and videos into ASCII art from the command
// line, using the same renderer and video pipeline as the server.
//
//	asciify image photo.jpg photo_ascii.png --columns 120
//	asciify video clip.mp4 clip_ascii.mp4 --columns 150
//	asciify palette --palette "@%#*+=-:. "
//
// Video conversion needs ffmpeg and ffprobe on PATH or passed with --ffmpeg
// and --ffprobe.
package main
