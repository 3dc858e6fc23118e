package translate

import "image"

func imageRect(x1, y1, x2, y2 int) image.Rectangle {
	return image.Rect(x1, y1, x2, y2)
}
