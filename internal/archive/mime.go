// mime.go — классификация содержимого по расширению имени файла.
package archive

import "strings"

// Generic MIME-тип для неизвестных расширений.
const contentTypeBinary = "application/octet-stream"

// mimeTypes — таблица расширение → MIME-тип.
var mimeTypes = map[string]string{
	"pdf":  "application/pdf",
	"json": "application/json",
	"txt":  "text/plain",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"csv":  "text/csv",
	"xml":  "application/xml",
	"html": "text/html",
}

// Classify возвращает MIME-тип по расширению имени файла.
// Расширение — текст после последней точки, регистр игнорируется.
// Неизвестное или отсутствующее расширение — application/octet-stream.
// Чистая функция без побочных эффектов.
func Classify(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return contentTypeBinary
	}
	if mt, ok := mimeTypes[strings.ToLower(name[idx+1:])]; ok {
		return mt
	}
	return contentTypeBinary
}
