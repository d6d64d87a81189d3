package messages

// ─── Tenant ──────────────────────────────────────────────────────────────────

const (
	TenantCreatedTitle = "Tenant mới đã được khởi tạo"
	TenantCreatedBody  = "Tenant '%s' đã được tạo thành công cùng các nhóm vai trò."

	TenantUpdatedTitle = "Tenant đã được cập nhật"
	TenantUpdatedBody  = "Thông tin hiển thị của tenant '%s' đã được cập nhật."

	TenantDeletedTitle = "Đã xóa tenant"
	TenantDeletedBody  = "Tenant '%s' đã bị xóa khỏi hệ thống."
)

// ─── Admin ───────────────────────────────────────────────────────────────────

const (
	AdminAssignedTitle = "Quản trị viên tenant mới"
	AdminAssignedBody  = "Người dùng '%s' đã được cấp quyền quản trị tenant '%s'."

	AdminRemovedTitle = "Thu hồi quyền quản trị"
	AdminRemovedBody  = "Người dùng '%s' không còn là quản trị viên của tenant '%s'."
)

// ─── Sync ────────────────────────────────────────────────────────────────────

const (
	SyncCompletedTitle = "Đồng bộ vai trò hoàn tất"
	SyncCompletedBody  = "Đã đồng bộ %d tenant: thêm %d nhóm vai trò, xóa %d nhóm vai trò."
)
