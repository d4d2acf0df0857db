package validation

// 上传表单共享的约束常量，服务端与客户端使用同一份。
const (
	MaxFileSizeBytes     = int64(10 * 1024 * 1024) // 10 MiB
	TitleMinLength       = 2
	TitleMaxLength       = 20
	DescriptionMaxLength = 65
)

// AcceptedContentTypes lists the MIME types an image upload may carry.
var AcceptedContentTypes = []string{"image/png", "image/jpeg", "image/gif"}

// Field error messages.
const (
	MsgFileRequired        = "File is required"
	MsgFileTooLarge        = "The file must be smaller than 10MB"
	MsgFileFormat          = "Only PNG, JPEG and GIF files are accepted"
	MsgTitleRequired       = "Title is required"
	MsgTitleTooShort       = "Minimum of 2 characters"
	MsgTitleTooLong        = "Maximum of 20 characters"
	MsgDescriptionRequired = "Description is required"
	MsgDescriptionTooLong  = "Maximum of 65 characters"
)

// Field names used as keys in Errors.
const (
	FieldFile        = "image"
	FieldTitle       = "title"
	FieldDescription = "description"
)
