package seeders

import (
	"log"

	"workflow-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func intPtr(v int) *int { return &v }

func rolePtr(r models.Role) *models.Role { return &r }

// SeedSystemTemplates creates or updates the system-level workflow
// templates. These use tenant_id 'system' and are visible to every tenant.
func SeedSystemTemplates(db *gorm.DB) error {
	group := 0
	templates := []models.WorkflowTemplate{
		{
			TenantID:              "system",
			Name:                  "content_review",
			DisplayName:           "Content Review",
			Category:              "content",
			TemplateVersion:       1,
			IsSystem:              true,
			AutoStart:             true,
			ApplicableEntityTypes: []string{"content"},
			RejectPolicy:          models.RejectPolicyRevision,
			DefaultTimeoutHours:   48,
			Stages: []models.StageDefinition{
				{
					Index:          0,
					Name:           "Editorial review",
					ApproverRoles:  []models.Role{models.RoleReviewer},
					TimeoutHours:   intPtr(24),
					EscalationRole: rolePtr(models.RoleBrandManager),
				},
				{
					Index:         1,
					Name:          "Final approval",
					ApproverRoles: []models.Role{models.RoleApprover, models.RoleBrandManager},
				},
			},
		},
		{
			TenantID:              "system",
			Name:                  "campaign_launch",
			DisplayName:           "Campaign Launch Approval",
			Category:              "campaign",
			TemplateVersion:       1,
			IsSystem:              true,
			ApplicableEntityTypes: []string{"campaign", "journey"},
			AllowParallelStages:   true,
			RequireAllApprovers:   true,
			RejectPolicy:          models.RejectPolicyFinal,
			DefaultTimeoutHours:   72,
			Stages: []models.StageDefinition{
				{
					Index:          0,
					Name:           "Legal sign-off",
					ApproverRoles:  []models.Role{models.RoleReviewer},
					ParallelGroup:  &group,
					EscalationRole: rolePtr(models.RoleAdmin),
				},
				{
					Index:          1,
					Name:           "Brand sign-off",
					ApproverRoles:  []models.Role{models.RoleBrandManager},
					ParallelGroup:  &group,
					EscalationRole: rolePtr(models.RoleAdmin),
				},
				{
					Index:         2,
					Name:          "Launch approval",
					ApproverRoles: []models.Role{models.RoleApprover},
					TimeoutHours:  intPtr(24),
				},
			},
		},
	}

	for _, template := range templates {
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "name"}, {Name: "template_version"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name", "category", "stages", "reject_policy", "default_timeout_hours", "updated_at"}),
		}).Create(&template)

		if result.Error != nil {
			log.Printf("Failed to seed template %s: %v", template.Name, result.Error)
			return result.Error
		}
		log.Printf("Seeded template: %s (tenant: %s)", template.Name, template.TenantID)
	}

	return nil
}
