// facecursor moves an on-screen cursor with your face.
//
// It opens the local webcam, runs a face detector on every frame and moves a
// cursor on the page it serves.
//
// Usage:
//
//	facecursor run              # start tracking and serve the cursor page
//	facecursor probe            # check camera and engine support
//	facecursor fetch            # download the engine artifact
//	facecursor watch            # print cursor positions from a running instance
package main

func main() {
	Execute()
}
