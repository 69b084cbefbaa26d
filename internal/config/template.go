package config

// DefaultYAML is the commented starter configuration written by the
// genconfig command. Field names match the mapstructure tags on Config.
const DefaultYAML = `# dbd-cli configuration.
# Every value can be overridden with a DBD_* environment variable,
# e.g. DBD_SEARCH_MAX_PAGES=10, or with command-line flags.

input:
  # Roster file: .csv, .xlsx, or .txt (one name per line).
  file: companies.csv
  # Column holding company names. Falls back to "company_name",
  # then the first column.
  company_column: company_name
  # Optional column with already-known registration numbers.
  reg_column: ""
  # XLSX sheet name; empty uses the first sheet.
  sheet: ""
  # Keep only names carrying a Thai legal form.
  filter_thai: true

output:
  records_file: dbd_financials.csv
  not_found_file: dbd_not_found.csv
  # Per-worker batch files and checkpoints live here.
  batch_dir: batches
  # Overwrite final outputs without a timestamped backup.
  force_overwrite: false

search:
  base_url: https://datawarehouse.dbd.go.th
  # Result pages scanned per search term.
  max_pages: 20
  # Minimum token-overlap score accepted from the fallback pass.
  similarity_threshold: 0.95

processing:
  # Parallel workers, each with its own browser.
  workers: 1
  # Companies per checkpoint batch.
  batch_size: 20
  # Seconds between page requests, per worker.
  delay_between_requests: 3
  # Roster window: skip start_index rows, process at most limit.
  start_index: 0
  limit: 0

retry:
  # Total extraction attempts per company.
  max_retries: 3
  # Seconds of additional wait per retry (linear).
  extra_wait_per_retry: 2

browser:
  headless: true
  page_load_wait: 10
  tab_click_wait: 4
  table_load_wait: 6
  extra_wait: 3
  timeout_secs: 60

extraction:
  # "all" or "revenue_only".
  mode: all
  include_balance_sheet: true

debug:
  # Capture a screenshot for each failed company.
  enabled: false
  dir: debug

store:
  # "sqlite" (local file) or "postgres" (shared cache).
  driver: sqlite
  path: dbd_cache.db
  database_url: ""

log:
  level: info
  # "console" or "json".
  format: console
`
