package services

import "github.com/enginecore/enginecore/internal/service"

const (
	FileRead service.SlotID = iota + SlotExit + 1
	FileWrite
	FileExists
	FileRemove
)

type (
	ReadFunc   func(path string) ([]byte, error)
	WriteFunc  func(path string, data []byte) error
	ExistsFunc func(path string) bool
	RemoveFunc func(path string) error
)

var FileSchema = schema(FileID,
	service.Slot[ReadFunc]("Read"),
	service.Slot[WriteFunc]("Write"),
	service.Slot[ExistsFunc]("Exists"),
	service.Slot[RemoveFunc]("Remove"),
)

type File struct {
	Lifecycle
}

func NewFile(t *service.Table) File { return File{Lifecycle{t: t}} }

func (f File) Read(path string) ([]byte, error) {
	defer f.t.Track()()
	return service.Fn[ReadFunc](f.t, FileRead)(path)
}

func (f File) Write(path string, data []byte) error {
	defer f.t.Track()()
	return service.Fn[WriteFunc](f.t, FileWrite)(path, data)
}

func (f File) Exists(path string) bool {
	defer f.t.Track()()
	return service.Fn[ExistsFunc](f.t, FileExists)(path)
}

func (f File) Remove(path string) error {
	defer f.t.Track()()
	return service.Fn[RemoveFunc](f.t, FileRemove)(path)
}
