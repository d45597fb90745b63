// Package transcriber turns remote audio and video into transcript text by
// downloading the media and shelling out to the whisper CLI.
package transcriber
