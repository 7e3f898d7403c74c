package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with baseline access data",
	Long:  `Seed the database with an admin user, the engine's own permissions, the SUPER_ADMIN role and a default template.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		password := "password"
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

		adminEmail := "admin@workstream.local"
		var adminID int64
		row := db.Raw("SELECT id FROM users WHERE email = ?", adminEmail).Row()
		if err := row.Scan(&adminID); err != nil {
			if err := db.Exec("INSERT INTO users (email, name, password_hash, department, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, true, now(), now())",
				adminEmail, "Platform Admin", string(hash), "platform").Error; err != nil {
				log.Fatalf("failed to insert admin user: %v", err)
			}
			if err := db.Raw("SELECT id FROM users WHERE email = ?", adminEmail).Row().Scan(&adminID); err != nil {
				log.Fatalf("failed to read admin user: %v", err)
			}
			fmt.Println("Seeded admin user:", adminEmail)
		} else {
			fmt.Println("admin user already exists; will ensure permissions")
		}

		permissions := []struct {
			Code   string
			Name   string
			Module string
			Type   string
		}{
			{"system:permission:manage", "Manage access control", "system", "operation"},
			{"system:permission:view", "View access control", "system", "operation"},
			{"system:audit:view", "View audit logs", "system", "operation"},
			{"expense:view", "View expenses", "expense", "data"},
			{"expense:approve", "Approve expenses", "expense", "operation"},
			{"report:view", "View reports", "report", "data"},
		}

		permissionIDs := make(map[string]int64, len(permissions))
		for _, p := range permissions {
			var pid int64
			row := db.Raw("SELECT id FROM permissions WHERE code = ?", p.Code).Row()
			if err := row.Scan(&pid); err != nil {
				if err := db.Exec("INSERT INTO permissions (code, name, module, type, status, created_at, updated_at) VALUES (?, ?, ?, ?, 'enabled', now(), now())",
					p.Code, p.Name, p.Module, p.Type).Error; err != nil {
					log.Fatalf("failed to insert permission %s: %v", p.Code, err)
				}
				if err := db.Raw("SELECT id FROM permissions WHERE code = ?", p.Code).Row().Scan(&pid); err != nil {
					log.Fatalf("failed to read permission %s: %v", p.Code, err)
				}
				fmt.Println("Seeded permission:", p.Code)
			}
			permissionIDs[p.Code] = pid
		}

		var roleID int64
		row = db.Raw("SELECT id FROM roles WHERE code = ?", "SUPER_ADMIN").Row()
		if err := row.Scan(&roleID); err != nil {
			if err := db.Exec("INSERT INTO roles (code, name, description, status, is_system, version, created_at, updated_at) VALUES ('SUPER_ADMIN', 'Super Admin', 'Full access to everything', 'enabled', true, 0, now(), now())").Error; err != nil {
				log.Fatalf("failed to insert SUPER_ADMIN role: %v", err)
			}
			if err := db.Raw("SELECT id FROM roles WHERE code = ?", "SUPER_ADMIN").Row().Scan(&roleID); err != nil {
				log.Fatalf("failed to read SUPER_ADMIN role: %v", err)
			}
			fmt.Println("Seeded SUPER_ADMIN role")
		}

		for _, pid := range permissionIDs {
			var exists int
			row := db.Raw("SELECT 1 FROM role_permissions WHERE role_id = ? AND permission_id = ?", roleID, pid).Row()
			if err := row.Scan(&exists); err != nil {
				if err := db.Exec("INSERT INTO role_permissions (role_id, permission_id, data_scope, created_at) VALUES (?, ?, 'all', now())", roleID, pid).Error; err != nil {
					log.Fatalf("failed to link permission to SUPER_ADMIN: %v", err)
				}
			}
		}

		var linked int
		row = db.Raw("SELECT 1 FROM user_roles WHERE user_id = ? AND role_id = ?", adminID, roleID).Row()
		if err := row.Scan(&linked); err != nil {
			if err := db.Exec("INSERT INTO user_roles (user_id, role_id, status, created_by, created_at, updated_at) VALUES (?, ?, 'enabled', ?, now(), now())", adminID, roleID, adminID).Error; err != nil {
				log.Fatalf("failed to assign SUPER_ADMIN to admin user: %v", err)
			}
			fmt.Println("Assigned SUPER_ADMIN to admin user")
		}

		var templateID int64
		row = db.Raw("SELECT id FROM permission_templates WHERE name = ?", "Default Onboarding").Row()
		if err := row.Scan(&templateID); err != nil {
			if err := db.Exec("INSERT INTO permission_templates (name, description, is_default, status, created_by, created_at, updated_at) VALUES ('Default Onboarding', 'Permissions applied to new users', true, 'enabled', ?, now(), now())", adminID).Error; err != nil {
				log.Fatalf("failed to insert default template: %v", err)
			}
			if err := db.Raw("SELECT id FROM permission_templates WHERE name = ?", "Default Onboarding").Row().Scan(&templateID); err != nil {
				log.Fatalf("failed to read default template: %v", err)
			}
			for _, code := range []string{"expense:view", "report:view"} {
				if err := db.Exec("INSERT INTO template_permissions (template_id, permission_id, data_scope, created_at) VALUES (?, ?, 'personal', now())", templateID, permissionIDs[code]).Error; err != nil {
					log.Fatalf("failed to link permission to default template: %v", err)
				}
			}
			fmt.Println("Seeded default template")
		}

		fmt.Println("Seeding complete")
	},
}
