package domain

import "time"

// Project groups tasks and the files attached to them.
type Project struct {
	Model
	Name        string    `json:"name"        validate:"required,max=100"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	FileIDs     []int64   `json:"files"`
	FilesCount  int       `json:"files_count"`
}

// Validate checks the project fields.
func (p *Project) Validate() error {
	return validateStruct(p).Err()
}

// CopyReadOnly copies server-managed fields from prev.
func (p *Project) CopyReadOnly(prev *Project) {
	p.CreatedAt = prev.CreatedAt
	p.FilesCount = prev.FilesCount
}

// ProjectFile is an uploaded document. Path is relative to the media root.
type ProjectFile struct {
	Model
	Name      string    `json:"name"       validate:"required,max=120"`
	Path      string    `json:"file"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the file metadata.
func (f *ProjectFile) Validate() error {
	fe := validateStruct(f)
	if f.Path == "" {
		fe.Add("file", "No file was submitted.")
	}
	return fe.Err()
}

// CopyReadOnly copies server-managed fields from prev.
func (f *ProjectFile) CopyReadOnly(prev *ProjectFile) {
	f.Path = prev.Path
	f.Size = prev.Size
	f.CreatedAt = prev.CreatedAt
}

// Tag labels tasks.
type Tag struct {
	Model
	Name string `json:"name" validate:"required,max=20"`
}

// Validate checks the tag name.
func (t *Tag) Validate() error {
	return validateStruct(t).Err()
}

// CopyReadOnly is a no-op; tags have no server-managed fields.
func (t *Tag) CopyReadOnly(*Tag) {}

// Category classifies tasks and books. Deleting a category only flags it.
type Category struct {
	Model
	Name      string `json:"name"       validate:"required,max=100"`
	IsDeleted bool   `json:"is_deleted"`
}

// Validate checks the category name.
func (c *Category) Validate() error {
	return validateStruct(c).Err()
}

// CopyReadOnly copies server-managed fields from prev.
func (c *Category) CopyReadOnly(prev *Category) {
	c.IsDeleted = prev.IsDeleted
}

// IsSoftDeleted implements SoftDeletable.
func (c *Category) IsSoftDeleted() bool { return c.IsDeleted }

// CategoryTaskCount is one row of the category usage report.
type CategoryTaskCount struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	TasksCount int    `json:"tasks_count"`
}
