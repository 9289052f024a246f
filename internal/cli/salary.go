package cli

import (
	"cvcoach/internal/common"
	"cvcoach/internal/phase"
	"cvcoach/internal/salary"
	"cvcoach/internal/types"

	"github.com/spf13/cobra"
)

var salaryCmd = &cobra.Command{
	Use:   "salary",
	Short: "Check a salary expectation against the market band of a role",
	Long: `Check a monthly salary expectation (BRL) against the band of the target
role. The band depends on the location (São Paulo and capitals pay more) or
on the company size when given. No AI call is made.

Accepted amounts: "R$ 18.000,00", "18000", "18k", "18 mil".`,
	Example: `  cvcoach salary --role "Gerente de Vendas" --expectation "R$ 18.000" --location "São Paulo"`,
	Args:    cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return resolveFormat(cmd, &salaryConfig.CommandConfig)
	},
	RunE: runSalary,
}

var salaryConfig struct {
	common.CommandConfig
	role        string
	expectation string
	location    string
	companySize string
	remote      bool
}

func init() {
	outputFlags(salaryCmd, &salaryConfig.CommandConfig)
	salaryCmd.Flags().StringVar(&salaryConfig.role, "role", "", "Target role")
	salaryCmd.Flags().StringVar(&salaryConfig.expectation, "expectation", "", "Monthly expectation in BRL")
	salaryCmd.Flags().StringVar(&salaryConfig.location, "location", "", "City or state")
	salaryCmd.Flags().StringVar(&salaryConfig.companySize, "company-size", "", "Company size (startup, media, grande, multinacional)")
	salaryCmd.Flags().BoolVar(&salaryConfig.remote, "remote", false, "Remote position")
	_ = salaryCmd.MarkFlagRequired("role")
	_ = salaryCmd.MarkFlagRequired("expectation")
}

func runSalary(cmd *cobra.Command, args []string) error {
	logger := getLoggerFromContext(cmd.Context())

	role, err := phase.ValidateTargetRole(salaryConfig.role)
	if err != nil {
		return err
	}
	if _, err := salary.ParseExpectation(salaryConfig.expectation); err != nil {
		return err
	}

	profile := &types.Profile{
		TargetRole:  role,
		Location:    salaryConfig.location,
		Remote:      salaryConfig.remote,
		CompanySize: salaryConfig.companySize,
	}
	result := salary.Validate(salaryConfig.expectation, role, salaryConfig.location, profile)
	logger.Debug("Salary checked", "role", role, "level", string(result.Level), "category", string(result.Category))

	return common.NewOutputHandlerTo(cmd.OutOrStdout(), logger).HandleOutput(result, salaryConfig.CommandConfig)
}
