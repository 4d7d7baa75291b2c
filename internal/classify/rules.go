package classify

import (
	"github.com/changescribe/changescribe/internal/models"
)

// DefaultRules is the built-in ordered rule table for the procurement
// workflow codebase (Next.js app router + Prisma). Order is significant
// and fixed: earlier rules shadow later ones.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:     "api-routes",
			Category: models.CategoryAPI,
			Priority: models.PriorityCritical,
			Globs: []string{
				"app/api/**",
				"pages/api/**",
			},
		},
		{
			Name:     "schema-migrations",
			Category: models.CategoryDatabase,
			Priority: models.PriorityCritical,
			Globs: []string{
				"prisma/**",
				"db/migrations/**",
				"**/*.sql",
			},
		},
		{
			Name:     "auth-security",
			Category: models.CategoryAuth,
			Priority: models.PriorityCritical,
			Globs: []string{
				"middleware.ts",
				"lib/auth/**",
				"lib/session/**",
				"**/auth/**",
				"**/*auth*.ts",
			},
		},
		{
			Name:     "business-logic",
			Category: models.CategoryBusinessLogic,
			Priority: models.PriorityHigh,
			Globs: []string{
				"lib/**",
				"services/**",
				"utils/workflow/**",
			},
		},
		{
			Name:     "type-definitions",
			Category: models.CategoryTypes,
			Priority: models.PriorityMedium,
			Globs: []string{
				"types/**",
				"**/*.d.ts",
			},
		},
		{
			Name:     "ui-components",
			Category: models.CategoryUI,
			Priority: models.PriorityMedium,
			Globs: []string{
				"components/ui/**",
				"app/**/page.tsx",
				"app/**/layout.tsx",
			},
		},
		{
			Name:     "tier-forms",
			Category: models.CategoryTierForms,
			Priority: models.PriorityHigh,
			Globs: []string{
				"components/tiers/**",
				"components/forms/**",
				"app/packages/**/tier*/**",
			},
		},
		{
			Name:     "styling",
			Category: models.CategoryStyling,
			Priority: models.PriorityLow,
			Globs: []string{
				"**/*.css",
				"**/*.scss",
				"tailwind.config.*",
			},
		},
		{
			Name:     "configuration",
			Category: models.CategoryConfig,
			Priority: models.PriorityMedium,
			Globs: []string{
				"*.config.*",
				".env*",
				"package.json",
				"package-lock.json",
				"tsconfig.json",
				"next.config.js",
			},
		},
		{
			Name:     "docs-tests",
			Category: models.CategoryDocs,
			Priority: models.PriorityLow,
			Globs: []string{
				"**/*.md",
				"**/*.test.*",
				"**/*.spec.*",
				"**/__tests__/**",
				"docs/**",
			},
		},
	}
}
