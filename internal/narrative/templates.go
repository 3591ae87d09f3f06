package narrative

// Built-in narrative templates. Bodies are text/template markdown; lines
// consisting solely of a bold phrase become section boundaries when the
// rendered content is decomposed.

const ttestTemplate = `📊 **{{.test_name}} Results**

Your analysis reveals {{significanceStatement .p_value}} results (t = {{printf "%.2f" .test_statistic}}, p {{formatPValue .p_value}}).

**Key Findings:**
{{if lt .p_value 0.05 -}}
• The difference between groups is statistically significant
{{if .group_statistics}}• The {{colName .columns 0 "treatment"}} group showed {{printf "%.1f" (groupDiff .group_statistics "group_a_mean" "group_b_mean")}} points difference on average
{{end}}{{if .effect_size}}• Effect size is {{interpretEffectSize .effect_size .test_name}} (d = {{printf "%.2f" .effect_size}})
{{end}}{{if and .confidence_interval_lower .confidence_interval_upper}}• 95% confidence interval: [{{printf "%.2f" .confidence_interval_lower}}, {{printf "%.2f" .confidence_interval_upper}}]
{{end}}{{else -}}
• No statistically significant difference was found between groups
• The observed difference could reasonably be due to random variation
{{if and .effect_size (lt .effect_size 0.2)}}• Effect size is small (d = {{printf "%.2f" .effect_size}}), suggesting minimal practical difference
{{end}}{{end}}
**Sample Information:**
• Sample size: {{.sample_size}} observations
{{if .degrees_of_freedom}}• Degrees of freedom: {{printf "%.0f" .degrees_of_freedom}}
{{end}}
**Interpretation:**
{{if lt .p_value 0.001 -}}
This result is highly significant (p < 0.001), providing very strong evidence against the null hypothesis. There is less than a 0.1% chance this difference occurred by random chance alone.
{{else if lt .p_value 0.01 -}}
This result is significant at the 0.01 level, providing strong evidence of a real difference between groups.
{{else if lt .p_value 0.05 -}}
This result meets the conventional significance threshold (p < 0.05), suggesting a meaningful difference exists.
{{else -}}
The p-value ({{printf "%.3f" .p_value}}) exceeds the typical significance threshold of 0.05. While there may be a trend, we cannot confidently conclude a significant difference exists.
{{end}}
**Recommendations:**
{{if lt .p_value 0.05 -}}
{{if and .effect_size (gt .effect_size 0.5)}}✓ The {{interpretEffectSize .effect_size .test_name}} effect size suggests this difference has practical importance
✓ Consider implementing changes based on these findings
{{end}}⚠️ Validate results with additional data or replication studies
📈 Investigate factors that might explain the observed difference
{{else -}}
• Consider collecting more data to increase statistical power
• Examine whether the effect size, while not significant, might still be practically meaningful
• Review study design and measurement methods for potential improvements
{{end}}`

const correlationTemplate = `📈 **Correlation Analysis Results**

Your analysis reveals a {{corrStrength .test_statistic}} {{if gt .test_statistic 0.0}}positive{{else}}negative{{end}} correlation between {{colName .columns 0 "Variable X"}} and {{colName .columns 1 "Variable Y"}}.

**Statistical Results:**
• Correlation coefficient (r): {{printf "%.3f" .test_statistic}}
• P-value: {{formatPValue .p_value}}
• Sample size: {{.sample_size}} observations
{{if .degrees_of_freedom}}• Degrees of freedom: {{printf "%.0f" .degrees_of_freedom}}
{{end}}
**Key Insights:**
{{if lt .p_value 0.05 -}}
• This correlation is {{significanceStatement .p_value}}
• {{printf "%.1f" (rsquaredPct .test_statistic)}}% of the variation in {{colName .columns 1 "the dependent variable"}} is explained by {{colName .columns 0 "the independent variable"}}
{{if gt (abs .test_statistic) 0.7}}• This is considered a strong relationship in most contexts
{{else if gt (abs .test_statistic) 0.3}}• This represents a moderate relationship that may have practical significance
{{else}}• While statistically significant, the relationship strength is relatively weak
{{end}}{{else -}}
• The correlation is not statistically significant
• Any apparent relationship could reasonably be due to random variation
• Consider collecting more data or examining potential confounding factors
{{end}}
**Interpretation:**
{{if gt .test_statistic 0.0 -}}
As {{colName .columns 0 "one variable"}} increases, {{colName .columns 1 "the other variable"}} tends to increase as well.
{{else -}}
As {{colName .columns 0 "one variable"}} increases, {{colName .columns 1 "the other variable"}} tends to decrease.
{{end}}
{{if lt .p_value 0.05 -}}
**Recommendations:**
{{if gt (abs .test_statistic) 0.7}}✓ Strong correlation suggests potential causal investigation
✓ Consider this relationship in predictive models or decision-making
{{else if gt (abs .test_statistic) 0.3}}✓ Moderate correlation warrants further investigation
✓ Look for underlying factors that might explain this relationship
{{end}}⚠️ Remember: correlation does not imply causation
📊 Consider creating a scatter plot to visualize this relationship
{{else -}}
**Next Steps:**
• Increase sample size if possible to improve statistical power
• Examine data quality and potential measurement errors
• Consider whether the variables need transformation (e.g., log scale)
• Look for non-linear relationships that correlation might miss
{{end}}`

const anovaTemplate = `🔬 **ANOVA Results**

Your one-way ANOVA analysis {{if lt .p_value 0.05}}shows{{else}}does not show{{end}} statistically significant differences between groups.

**Statistical Results:**
• F-statistic: {{printf "%.3f" .test_statistic}}
• P-value: {{formatPValue .p_value}}
{{if .degrees_of_freedom}}• Degrees of freedom: {{printf "%.0f" .degrees_of_freedom}}
{{end}}• Sample size: {{.sample_size}} total observations
{{if .effect_size}}• Effect size (η²): {{printf "%.3f" .effect_size}}
{{end}}
**Key Findings:**
{{if lt .p_value 0.05 -}}
• At least one group differs significantly from the others
{{if .effect_size}}{{if gt .effect_size 0.14}}• Large effect size (η² = {{printf "%.3f" .effect_size}}) suggests substantial group differences
{{else if gt .effect_size 0.06}}• Medium effect size (η² = {{printf "%.3f" .effect_size}}) indicates moderate group differences
{{else}}• Small effect size (η² = {{printf "%.3f" .effect_size}}) suggests minor but significant differences
{{end}}{{end}}{{if .group_statistics}}
**Group Summary:**
{{range $key, $value := .group_statistics}}• {{groupLabel $key}}: {{num2 $value}}
{{end}}{{end}}{{else -}}
• No statistically significant differences found between groups
• Observed variations could reasonably be due to random chance
• All groups appear to be drawn from populations with similar means
{{end}}
**Interpretation:**
{{if lt .p_value 0.001 -}}
The highly significant result (p < 0.001) provides very strong evidence that the groups have different population means.
{{else if lt .p_value 0.01 -}}
The significant result (p < 0.01) provides strong evidence of group differences.
{{else if lt .p_value 0.05 -}}
The result meets conventional significance criteria (p < 0.05), suggesting meaningful group differences.
{{else -}}
The result (p = {{printf "%.3f" .p_value}}) does not reach statistical significance. This could indicate either no real differences exist, or the study lacks sufficient power to detect existing differences.
{{end}}
{{if lt .p_value 0.05 -}}
**Recommendations:**
✓ Conduct post-hoc tests to identify which specific groups differ
📊 Create box plots or bar charts to visualize group differences
{{if and .effect_size (gt .effect_size 0.06)}}✓ The {{if gt .effect_size 0.14}}large{{else}}medium{{end}} effect size suggests practical importance
{{end}}⚠️ Consider potential confounding variables that might explain group differences
📈 Investigate what factors distinguish the significantly different groups
{{else -}}
**Next Steps:**
• Consider increasing sample size to improve statistical power
• Examine whether groups are truly comparable (check for confounders)
• Review measurement methods for potential improvements
• Consider whether the grouping variable is optimal for your research question
{{end}}`

const chiSquareTemplate = `🎲 **Chi-Square Test Results**

Your chi-square test {{if lt .p_value 0.05}}reveals{{else}}does not reveal{{end}} a statistically significant association between the variables.

**Statistical Results:**
• Chi-square statistic (χ²): {{printf "%.3f" .test_statistic}}
• P-value: {{formatPValue .p_value}}
{{if .degrees_of_freedom}}• Degrees of freedom: {{printf "%.0f" .degrees_of_freedom}}
{{end}}• Sample size: {{.sample_size}} observations
{{if .effect_size}}• Effect size (Cramér's V): {{printf "%.3f" .effect_size}}
{{end}}
**Key Findings:**
{{if lt .p_value 0.05 -}}
• There is a statistically significant association between {{colName .columns 0 "the row variable"}} and {{colName .columns 1 "the column variable"}}
• The observed pattern of frequencies differs significantly from what we would expect by chance
{{if .effect_size}}{{if gt .effect_size 0.5}}• Large effect size (V = {{printf "%.3f" .effect_size}}) indicates a strong association
{{else if gt .effect_size 0.3}}• Medium effect size (V = {{printf "%.3f" .effect_size}}) indicates a moderate association
{{else if gt .effect_size 0.1}}• Small effect size (V = {{printf "%.3f" .effect_size}}) indicates a weak but significant association
{{else}}• Very small effect size (V = {{printf "%.3f" .effect_size}}) suggests the association, while significant, is minimal
{{end}}{{end}}{{else -}}
• No statistically significant association was found between the variables
• The observed frequencies could reasonably occur by random chance alone
• The variables appear to be independent of each other
{{end}}
**Interpretation:**
{{if lt .p_value 0.001 -}}
This highly significant result (p < 0.001) provides very strong evidence of association between the variables.
{{else if lt .p_value 0.01 -}}
This significant result (p < 0.01) provides strong evidence of association.
{{else if lt .p_value 0.05 -}}
This result meets the conventional significance threshold, suggesting a meaningful association exists.
{{else -}}
The result (p = {{printf "%.3f" .p_value}}) suggests the variables may be independent. Any apparent association could be due to random variation.
{{end}}
{{if .group_statistics}}
**Observed Patterns:**
{{range $key, $value := .group_statistics}}• {{groupLabel $key}}: {{$value}}
{{end}}{{end}}
{{if lt .p_value 0.05 -}}
**Recommendations:**
✓ Examine the contingency table to understand which specific combinations drive the association
📊 Create a heatmap or stacked bar chart to visualize the association pattern
{{if and .effect_size (gt .effect_size 0.3)}}✓ The {{if gt .effect_size 0.5}}large{{else}}medium{{end}} effect size suggests practical importance
{{end}}🔍 Investigate potential explanatory factors for this association
⚠️ Consider whether there might be confounding variables affecting this relationship
{{else -}}
**Next Steps:**
• Consider collecting more data to increase statistical power
• Check if the categories are appropriately defined and mutually exclusive
• Examine whether combining or restructuring categories might reveal patterns
• Consider alternative analyses if the assumption of independence is questionable
{{end}}`

const dataSummaryTemplate = `📊 **Dataset Overview**

Your dataset contains {{comma .total_rows}} rows and {{.total_columns}} columns{{if .data_quality_score}}, with an overall data quality score of {{printf "%.1f" (mul .data_quality_score 100.0)}}%{{end}}.

**Data Composition:**
{{if .column_types -}}
{{$numeric := countType .column_types "numeric"}}{{$categorical := countType .column_types "categorical"}}{{$datetime := countType .column_types "datetime" -}}
• {{$numeric}} numeric column{{plural $numeric}}
• {{$categorical}} categorical column{{plural $categorical}}
{{if gt $datetime 0}}• {{$datetime}} datetime column{{plural $datetime}}
{{end}}{{end}}
**Data Quality Assessment:**
{{if .missing_values -}}
{{$totalMissing := sumInts .missing_values}}{{$missingPct := pctOf $totalMissing (cells .total_rows .total_columns) -}}
{{if eq $totalMissing 0}}✅ Excellent: No missing values detected
{{else if lt $missingPct 5.0}}✅ Good: Minimal missing values ({{$totalMissing}} total, {{printf "%.1f" $missingPct}}%)
{{else if lt $missingPct 15.0}}⚠️ Fair: Some missing values detected ({{$totalMissing}} total, {{printf "%.1f" $missingPct}}%)
{{else}}❌ Concerning: High number of missing values ({{$totalMissing}} total, {{printf "%.1f" $missingPct}}%)
{{end}}
{{if gt $totalMissing 0}}**Columns with missing values:**
{{range $col, $n := .missing_values}}{{if gt $n 0}}• {{$col}}: {{$n}} missing ({{printf "%.1f" (pctOf $n $.total_rows)}}%)
{{end}}{{end}}{{end}}{{end}}
{{if .outliers_detected}}{{$totalOutliers := sumInts .outliers_detected}}{{if gt $totalOutliers 0}}**Outliers Detected:**
• {{$totalOutliers}} potential outlier{{plural $totalOutliers}} across {{countPositive .outliers_detected}} column{{plural (countPositive .outliers_detected)}}
{{range $col, $n := .outliers_detected}}{{if gt $n 0}}• {{$col}}: {{$n}} outlier{{plural $n}}
{{end}}{{end}}{{end}}{{end}}
{{if .numeric_summary}}**Numeric Variables Summary:**
{{range $col, $st := .numeric_summary}}• **{{$col}}**: Mean = {{printf "%.2f" (index $st "mean")}}, Range = {{printf "%.2f" (index $st "min")}} to {{printf "%.2f" (index $st "max")}}
{{end}}{{end}}
{{if .categorical_summary}}**Categorical Variables:**
{{range $col, $counts := .categorical_summary}}• **{{$col}}**: {{len $counts}} unique categories, most common: {{topCategory $counts}} ({{topCount $counts}} occurrences)
{{end}}{{end}}
**Dataset Readiness:**
{{if .data_quality_score -}}
{{if gt .data_quality_score 0.9}}✅ **Excellent** - This dataset is ready for analysis with minimal preprocessing
{{else if gt .data_quality_score 0.7}}✅ **Good** - Minor data cleaning recommended before analysis
{{else if gt .data_quality_score 0.5}}⚠️ **Fair** - Moderate preprocessing needed to optimize for analysis
{{else}}❌ **Poor** - Significant data cleaning required before reliable analysis
{{end}}{{end}}
**Recommended Next Steps:**
{{if .missing_values}}{{if gt (sumInts .missing_values) 0}}📝 Address missing values through imputation or removal strategies
{{end}}{{end}}{{if .outliers_detected}}{{if gt (sumInts .outliers_detected) 0}}🔍 Investigate outliers - they may represent valuable insights or data errors
{{end}}{{end}}📊 Proceed with descriptive statistics and visualization
🔬 Consider statistical tests based on your research questions`

// builtinTemplates returns the built-in template set in registration order.
func builtinTemplates() []*Template {
	return []*Template{
		{
			ID:            "ttest",
			NarrativeType: TypeStatisticalTest,
			TestTypes:     []string{"ttest", "t-test", "independent t-test", "one-sample t-test", "paired t-test"},
			Body:          ttestTemplate,
			RequiredFields: []string{"test_name", "test_statistic", "p_value", "sample_size"},
			OptionalFields: []string{
				"degrees_of_freedom", "effect_size", "confidence_interval_lower",
				"confidence_interval_upper", "columns", "group_statistics",
			},
			Conditions: map[string][]string{"test_name": {"ttest", "t-test", "independent t-test"}},
			Priority:   10,
			Version:    "1.0.0",
		},
		{
			ID:             "correlation",
			NarrativeType:  TypeStatisticalTest,
			TestTypes:      []string{"correlation", "pearson", "spearman", "kendall"},
			Body:           correlationTemplate,
			RequiredFields: []string{"test_statistic", "p_value", "sample_size"},
			OptionalFields: []string{"degrees_of_freedom", "columns"},
			Conditions:     map[string][]string{"test_name": {"correlation", "pearson", "spearman"}},
			Priority:       10,
			Version:        "1.0.0",
		},
		{
			ID:             "anova",
			NarrativeType:  TypeStatisticalTest,
			TestTypes:      []string{"anova", "one-way anova", "f-test"},
			Body:           anovaTemplate,
			RequiredFields: []string{"test_statistic", "p_value", "sample_size"},
			OptionalFields: []string{"degrees_of_freedom", "effect_size", "group_statistics", "columns"},
			Conditions:     map[string][]string{"test_name": {"anova", "one-way anova"}},
			Priority:       10,
			Version:        "1.0.0",
		},
		{
			ID:             "chi_square",
			NarrativeType:  TypeStatisticalTest,
			TestTypes:      []string{"chi_square", "chi-square", "chi2", "chi"},
			Body:           chiSquareTemplate,
			RequiredFields: []string{"test_statistic", "p_value", "sample_size"},
			OptionalFields: []string{"degrees_of_freedom", "effect_size", "columns", "group_statistics"},
			Conditions:     map[string][]string{"test_name": {"chi_square", "chi-square"}},
			Priority:       10,
			Version:        "1.0.0",
		},
		{
			ID:             "data_summary",
			NarrativeType:  TypeDataSummary,
			Body:           dataSummaryTemplate,
			RequiredFields: []string{"total_rows", "total_columns"},
			OptionalFields: []string{
				"missing_values", "column_types", "numeric_summary",
				"categorical_summary", "outliers_detected", "data_quality_score",
			},
			Priority: 10,
			Version:  "1.0.0",
		},
	}
}
