package entity

type Screenshot struct {
	Data   []byte
	Format string
	Width  int
	Height int
}

// Observation is what the screen collaborator reports at the start of an iteration.
type Observation struct {
	Screenshot    Screenshot
	ScreenshotRef string
	Mouse         Point
	Screen        ScreenSize
}
