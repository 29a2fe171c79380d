package help

const ColdstartYAML = `# dwc Quick Start

workers:
  start: |
    dwc worker --port 18861 &
    dwc worker --port 18862 &
    dwc worker --port 18863 &
  default_endpoints: "localhost:18861, localhost:18862, localhost:18863"

commands:
  count_text: |
    dwc count --text "the cat sat the cat ran"

  count_file: |
    dwc count --file report.pdf --top 10

  count_url: |
    dwc count --url "https://example.com" --normalize

  custom_workers: |
    dwc count --file notes.txt --endpoints "10.0.0.5:18861,10.0.0.6:18861"

  machine_output: |
    dwc count --file notes.txt --format yaml --output-dir results

  reuse_recent: |
    dwc count --file notes.txt --max-age 1h

  web_ui: |
    dwc serve --addr localhost:8080

  history: |
    dwc db runs
    dwc db run 5

retry_policy:
  max_retries: "Total connection attempts per worker (default 3)"
  retry_delay: "Pause between attempts (default 10s)"
  timeout: "Wait for a worker reply once connected (default 30s)"
  deadline: "Optional limit for the whole dispatch"

dispatch_invariants:
  - "Text is split into one contiguous chunk per endpoint, in order"
  - "Fewer words than endpoints: only the first N endpoints are used"
  - "The last chunk absorbs any remainder"
  - "A failed worker drops only its chunk; the rest are still merged"
  - "Only refused connections are retried"

error_behavior:
  - "Exit codes: 0=success (including partial worker failure), 1=bad input, 2=no workers or backend failure"
  - "Per-worker outcomes are printed with status, error kind and latency"
`
