package model

// DefaultAspectRatio is used when the request omits the field.
const DefaultAspectRatio = "1:1"

// ValidAspectRatios is the closed set of aspect ratios the pipeline accepts.
var ValidAspectRatios = map[string]bool{
	"21:9": true,
	"16:9": true,
	"3:2":  true,
	"4:3":  true,
	"5:4":  true,
	"1:1":  true,
	"4:5":  true,
	"3:4":  true,
	"2:3":  true,
	"9:16": true,
}

// IsValidAspectRatio reports whether ratio belongs to the closed enumeration.
func IsValidAspectRatio(ratio string) bool {
	return ValidAspectRatios[ratio]
}
