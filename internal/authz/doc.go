// Package authz decides which model actions a user may perform.
//
// Permissions are (group, object, action) rows stored in auth_groups and
// auth_group_permissions. At startup they are loaded into a casbin enforcer;
// requests are checked against the groups of the calling user. Superusers
// are always allowed.
package authz
